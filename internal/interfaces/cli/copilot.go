package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

// NewCopilotCmd creates the copilot command. With -o json every stream
// event is printed as one NDJSON line; otherwise message chunks are joined
// into plain text and the other events go to stderr with --verbose.
func NewCopilotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copilot <case-id> <question...>",
		Short: "Ask the case copilot a question and stream the answer",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			req := rtypes.CopilotChatRequest{CaseID: args[0], Query: strings.Join(args[1:], " ")}
			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			wrote := false

			err = cc.Client.Copilot().Stream(ctx, req, func(ev rtypes.CopilotEvent) error {
				if cc.OutputFormat == "json" {
					return enc.Encode(ev)
				}
				switch ev.Type {
				case rtypes.CopilotEventMessageChunk:
					if text := chunkText(ev.Data); text != "" {
						fmt.Fprint(out, text)
						wrote = true
					}
				case rtypes.CopilotEventError:
					fmt.Fprintf(cmd.ErrOrStderr(), "copilot error: %s\n", chunkText(ev.Data))
				default:
					if cc.Verbose {
						fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s\n", ev.Type, string(ev.Data))
					}
				}
				return nil
			})
			if wrote {
				fmt.Fprintln(out)
			}
			return err
		},
	}
}

// chunkText extracts the text of a message chunk, which is either a JSON
// string or an object with a text, content, delta or message field.
func chunkText(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return ""
	}
	for _, k := range []string{"text", "content", "delta", "message"} {
		if v, ok := obj[k].(string); ok {
			return v
		}
	}
	return ""
}
