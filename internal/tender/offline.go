package tender

import (
	"context"
	"encoding/json"

	"rftdraft/internal/llmclient"
)

// OfflineResponder answers model calls without a remote backend so the
// pipeline can run end to end in local development.
func OfflineResponder(_ context.Context, call llmclient.Call) (string, error) {
	if call.Opts.JSON {
		b, err := json.Marshal(Analysis{
			Summary:                  "Offline analysis of the submitted tender.",
			LegalRequirements:        []string{"Public liability insurance"},
			OperationalNeeds:         []string{"Daily cleaning schedule"},
			EstimationConsiderations: []string{"Site size and frequency"},
			KeyCriteria:              []string{"Price", "Experience"},
			WinThemes:                []string{"Reliable local workforce"},
		})
		return string(b), err
	}
	if call.Opts.System == polishInstructions {
		return call.Text(), nil
	}
	return "# Draft Response\n\nThis draft was produced by the offline model.\n", nil
}
