package cmd

import (
	"fmt"
	"strings"

	"github.com/nfrund/userhome/cmd/userhome-cli/internal/topics"
	"github.com/nfrund/userhome/internal/topicmgr"
	"github.com/spf13/cobra"
)

var (
	listFormat string
	listModule string
	listScope  string
	getFormat  string
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Explore the event topics of the dashboard",
	Long: `The topics command lists, inspects and validates the topics published on
the event bus: the userhome.* view events and the ws.* topics routed to
browser sockets.

Examples:
  userhome-cli topics list
  userhome-cli topics list --scope framework
  userhome-cli topics get userhome.phone.verified --format json
  userhome-cli topics validate userhome.view.closed`,
}

var topicsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered topics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := topics.Initialize()
		if err != nil {
			return err
		}

		list := manager.List()
		if listModule != "" {
			list = manager.ListByModule(listModule)
		}
		if listScope != "" {
			scope, err := parseScope(listScope)
			if err != nil {
				return err
			}
			kept := list[:0:0]
			for _, t := range list {
				if t.Scope() == scope {
					kept = append(kept, t)
				}
			}
			list = kept
		}

		out := cmd.OutOrStdout()
		switch listFormat {
		case "json":
			return topics.WriteJSON(out, list)
		case "table":
			if len(list) == 0 {
				fmt.Fprintln(out, "No topics found")
				return nil
			}
			return topics.WriteTable(out, list)
		}
		return fmt.Errorf("unsupported output format %q, use table or json", listFormat)
	},
}

var topicsGetCmd = &cobra.Command{
	Use:   "get <topic-name>",
	Short: "Show one topic in detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := topics.Initialize()
		if err != nil {
			return err
		}
		topic, ok := manager.Get(args[0])
		if !ok {
			return fmt.Errorf("topic %q not found, see 'userhome-cli topics list'", args[0])
		}
		return topics.WriteDetails(cmd.OutOrStdout(), topic, getFormat)
	},
}

var topicsValidateCmd = &cobra.Command{
	Use:   "validate <topic-name>",
	Short: "Check a topic name and, if registered, its definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := topics.Initialize()
		if err != nil {
			return err
		}
		name := args[0]
		if err := manager.ValidateTopicName(name); err != nil {
			return fmt.Errorf("invalid topic name: %w", err)
		}
		topic, ok := manager.Get(name)
		if !ok {
			fmt.Fprintf(cmd.OutOrStdout(), "Topic name %q is valid but not registered\n", name)
			return nil
		}
		if err := manager.ValidateDefinition(topic); err != nil {
			return fmt.Errorf("invalid topic definition: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Topic %q is valid (%s)\n", name, topic.Scope())
		return nil
	},
}

func parseScope(raw string) (topicmgr.TopicScope, error) {
	switch strings.ToLower(raw) {
	case "framework":
		return topicmgr.ScopeFramework, nil
	case "module":
		return topicmgr.ScopeModule, nil
	}
	return "", fmt.Errorf("invalid scope %q, valid scopes: framework, module", raw)
}

func init() {
	rootCmd.AddCommand(topicsCmd)
	topicsCmd.AddCommand(topicsListCmd, topicsGetCmd, topicsValidateCmd)

	topicsListCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "Output format (table, json)")
	topicsListCmd.Flags().StringVarP(&listModule, "module", "m", "", "Filter topics by module name")
	topicsListCmd.Flags().StringVarP(&listScope, "scope", "s", "", "Filter topics by scope (framework, module)")
	topicsGetCmd.Flags().StringVarP(&getFormat, "format", "f", "table", "Output format (table, json)")
}
