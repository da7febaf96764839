package cli

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/CaseLens/internal/application/casereview"
	"github.com/turtacn/CaseLens/internal/domain/review"
	"github.com/turtacn/CaseLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLens/pkg/errors"
	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

// NewIngestCmd creates the ingest command. The payload is a JSON document
// read from --file, or stdin when the file is "-".
func NewIngestCmd() *cobra.Command {
	var (
		caseID string
		domain string
		file   string
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Submit a case payload to the decision backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			payload, err := readPayload(cmd, file)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			resp, err := casereview.NewCaseService(cc.Backend, cc.Backend, cc.Logger).Ingest(ctx, rtypes.IngestRequest{
				CaseID:  caseID,
				Domain:  domain,
				Payload: payload,
			})
			if err != nil {
				return err
			}
			cc.Logger.Info("case submitted", logging.CaseID(resp.CaseID), logging.String("status", resp.Status))
			return PrintResult(cmd, resp)
		},
	}
	f := cmd.Flags()
	f.StringVar(&caseID, "case-id", "", "case id (required)")
	f.StringVar(&domain, "domain", string(review.DomainProcurement), "case domain")
	f.StringVarP(&file, "file", "f", "", "JSON payload file, - for stdin")
	_ = cmd.MarkFlagRequired("case-id")
	return cmd
}

func readPayload(cmd *cobra.Command, file string) (json.RawMessage, error) {
	if file == "" {
		return nil, nil
	}
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "read payload")
	}
	if !json.Valid(data) {
		return nil, errors.New(errors.ErrCodeBadRequest, "payload is not valid JSON").WithDetail(file)
	}
	return json.RawMessage(data), nil
}
