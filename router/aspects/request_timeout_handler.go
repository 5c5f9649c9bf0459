package aspects

import (
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/prebid/prebid-server-floors/config"
	"github.com/prebid/prebid-server-floors/logger"
)

// QueuedRequestTimeout rejects requests which waited in the load balancer queue longer than they may.
func QueuedRequestTimeout(f httprouter.Handle, reqTimeoutHeaders config.RequestTimeoutHeaders) httprouter.Handle {
	if reqTimeoutHeaders.RequestTimeInQueue == "" || reqTimeoutHeaders.RequestTimeoutInQueue == "" {
		return f
	}

	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {

		reqTimeInQueue := r.Header.Get(reqTimeoutHeaders.RequestTimeInQueue)
		reqTimeout := r.Header.Get(reqTimeoutHeaders.RequestTimeoutInQueue)

		//If request timeout headers are not specified - process request as usual
		if reqTimeInQueue == "" || reqTimeout == "" {
			f(w, r, params)
			return
		}

		reqTimeFloat, reqTimeFloatErr := strconv.ParseFloat(reqTimeInQueue, 64)
		reqTimeoutFloat, reqTimeoutFloatErr := strconv.ParseFloat(reqTimeout, 64)

		//Return HTTP 400 if request timeout headers are incorrect (wrong format)
		if reqTimeFloatErr != nil || reqTimeoutFloatErr != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		//Return HTTP 408 if requests stays too long in queue
		if reqTimeFloat >= reqTimeoutFloat {
			logger.Debugf("Request to %s spent %vs in queue, limit is %vs", r.URL.Path, reqTimeFloat, reqTimeoutFloat)
			w.WriteHeader(http.StatusRequestTimeout)
			return
		}

		f(w, r, params)
	}
}
