package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/CaseLens/internal/application/casereview"
	"github.com/turtacn/CaseLens/internal/domain/review"
	"github.com/turtacn/CaseLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLens/pkg/errors"
	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

// NewCaseCmd creates the case command and its read-only views.
func NewCaseCmd() *cobra.Command {
	caseCmd := &cobra.Command{
		Use:   "case",
		Short: "Inspect an exception case",
	}
	caseCmd.AddCommand(
		newCaseGroupsCmd(),
		newCaseWhyCmd(),
		newCaseEvidenceCmd(),
		newCaseTimelineCmd(),
		newCaseFeedCmd(),
		newCaseSummaryCmd(),
	)
	return caseCmd
}

func newCaseGroupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "groups <case-id>",
		Short: "List the exception groups of a case, riskiest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			c := newCoordinator(cc)
			if err := c.LoadGroups(ctx, args[0]); err != nil {
				return err
			}
			groups := c.Groups()
			if groups == nil {
				groups = []review.Group{}
			}
			return PrintResult(cmd, groupsView{
				CaseID:        c.CaseID(),
				RunID:         c.RunID(),
				ActiveGroupID: review.DefaultGroupID(groups),
				Groups:        groups,
			})
		},
	}
}

func newCaseWhyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "why <case-id> <group-id>",
		Short: "Show the rule results behind a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			c := newCoordinator(cc)
			g, err := selectGroup(cmd, c, args[0], args[1])
			if err != nil {
				return err
			}
			why := c.ActiveWhy()
			if why == nil {
				why = &rtypes.GroupRulesResponse{GroupID: g.GroupID}
			}
			return PrintResult(cmd, whyView{CaseID: c.CaseID(), Group: g, Why: why})
		},
	}
}

func newCaseEvidenceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "evidence <case-id> <group-id>",
		Short: "List the documents and evidence attached to a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			c := newCoordinator(cc)
			g, err := selectGroup(cmd, c, args[0], args[1])
			if err != nil {
				return err
			}
			return PrintResult(cmd, evidenceView{
				CaseID:    c.CaseID(),
				GroupID:   g.GroupID,
				Documents: c.ActiveDocuments(),
				Evidences: c.ActiveEvidences(),
			})
		},
	}
}

func newCaseTimelineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timeline <case-id>",
		Short: "Derive the audit timeline of the latest run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			events, err := newTimelineService(cc).Derive(ctx, args[0])
			if err != nil {
				return err
			}
			if events == nil {
				events = []review.AuditEvent{}
			}
			return PrintResult(cmd, timelineView{CaseID: args[0], Events: events})
		},
	}
}

func newCaseFeedCmd() *cobra.Command {
	var filter review.FeedFilter
	cmd := &cobra.Command{
		Use:   "feed <case-id>",
		Short: "Show the filterable audit feed of a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			res, err := newTimelineService(cc).Feed(ctx, args[0], filter)
			if err != nil {
				return err
			}
			cc.Logger.Debug("feed built",
				logging.CaseID(args[0]),
				logging.String("source", res.Source),
				logging.Int("events", len(res.Events)))
			return PrintResult(cmd, feedView{res})
		},
	}
	f := cmd.Flags()
	f.StringVarP(&filter.Query, "query", "q", "", "case-insensitive text search")
	f.StringVar(&filter.Severity, "severity", review.FilterAll, "severity filter")
	f.StringVar(&filter.Type, "type", review.FilterAll, "event type filter")
	f.StringVar(&filter.Actor, "actor", review.FilterAll, "actor filter")
	f.StringVar(&filter.Run, "run", review.FilterAll, "run id filter")
	return cmd
}

func newCaseSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <case-id>",
		Short: "Show the case header and latest decision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			s, err := casereview.NewCaseService(cc.Backend, cc.Backend, cc.Logger).Summary(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, summaryView{s})
		},
	}
}

func newCoordinator(cc *CLIContext) *casereview.Coordinator {
	return casereview.NewCoordinator(cc.Backend, cc.Logger, casereview.WithNormalizer(cc.Settings.Normalizer()))
}

func newTimelineService(cc *CLIContext) *casereview.TimelineService {
	return casereview.NewTimelineService(cc.Backend, nil, cc.Settings, cc.Logger, nil)
}

// selectGroup loads caseID and makes groupID active. Unknown groups are an
// error rather than an empty view.
func selectGroup(cmd *cobra.Command, c *casereview.Coordinator, caseID, groupID string) (review.Group, error) {
	ctx, cancel := withTimeout(cmd)
	defer cancel()

	if err := c.LoadGroups(ctx, caseID); err != nil {
		return review.Group{}, err
	}
	groupID = strings.TrimSpace(groupID)
	g, ok := c.Group(groupID)
	if !ok {
		return review.Group{}, errors.New(errors.ErrCodeGroupNotFound, "group not found in case").
			WithDetail("case_id=" + caseID + " group_id=" + groupID)
	}
	if err := c.SelectGroup(ctx, groupID); err != nil {
		return review.Group{}, err
	}
	return g, nil
}
