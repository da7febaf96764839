package cli

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/CaseLens/internal/application/casereview"
	miniostore "github.com/turtacn/CaseLens/internal/infrastructure/storage/minio"
	"github.com/turtacn/CaseLens/pkg/errors"
)

// NewPageCmd creates the page command, which resolves one evidence page to
// a displayable URL and its extracted text.
func NewPageCmd() *cobra.Command {
	var highlight string
	cmd := &cobra.Command{
		Use:   "page <document-id> <page>",
		Short: "Open an evidence document page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			page, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.New(errors.ErrCodeDocumentPageInvalid, "page must be a number").WithDetail(args[1])
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			resolver, err := pageResolver(ctx, cc)
			if err != nil {
				return err
			}
			state, err := casereview.NewNavigator(cc.Backend, resolver, cc.Logger, nil).Open(ctx, args[0], page, highlight)
			if err != nil {
				return err
			}
			if cc.OutputFormat == "text" {
				return printText(cmd, state.PageText)
			}
			return PrintResult(cmd, pageView{state})
		},
	}
	cmd.Flags().StringVar(&highlight, "highlight", "", "text to highlight on the page")
	return cmd
}

// pageResolver presigns storage keys when object storage is configured.
func pageResolver(ctx context.Context, cc *CLIContext) (casereview.PageURLResolver, error) {
	if cc.Config == nil || !cc.Config.MinIO.Enabled {
		return nil, nil
	}
	return miniostore.NewClient(ctx, cc.Config.MinIO.MinIOConfig, cc.Logger)
}
