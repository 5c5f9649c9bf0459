package file_fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/prebid/prebid-server-floors/stored_requests"
	jsonpatch "gopkg.in/evanphx/json-patch.v4"
)

// NewFileFetcher _immediately_ loads stored accounts from local files.
// These are stored in memory for low-latency reads.
//
// This expects each file in the directory to be named "{account_id}.json".
// For example, when asked to fetch the account with ID == "23", it will return the data from "directory/23.json".
func NewFileFetcher(directory string) (stored_requests.AccountFetcher, error) {
	accounts, err := collectStoredData(directory)
	if err != nil {
		return nil, err
	}
	return &eagerFetcher{accounts: accounts}, nil
}

type eagerFetcher struct {
	accounts map[string]json.RawMessage
}

func (fetcher *eagerFetcher) FetchAccount(ctx context.Context, accountDefaultsJSON json.RawMessage, accountID string) (json.RawMessage, []error) {
	accountJSON, ok := fetcher.accounts[accountID]
	if !ok {
		return nil, []error{stored_requests.NotFoundError{
			ID:       accountID,
			DataType: "Account",
		}}
	}
	if len(accountDefaultsJSON) == 0 {
		return accountJSON, nil
	}

	completeJSON, err := jsonpatch.MergePatch(accountDefaultsJSON, accountJSON)
	if err != nil {
		return nil, []error{fmt.Errorf("merging account %s over account_defaults: %v", accountID, err)}
	}
	return completeJSON, nil
}

func collectStoredData(directory string) (map[string]json.RawMessage, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, err
	}
	data := make(map[string]json.RawMessage, len(entries))
	for _, entry := range entries {
		// Skip the .gitignore and nested directories
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		fileData, err := os.ReadFile(filepath.Join(directory, entry.Name()))
		if err != nil {
			return nil, err
		}
		data[strings.TrimSuffix(entry.Name(), ".json")] = json.RawMessage(fileData)
	}
	return data, nil
}
