package topics

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/nfrund/userhome/internal/topicmgr"
)

// TopicDisplay is the JSON form of a topic.
type TopicDisplay struct {
	Name        string         `json:"name"`
	Scope       string         `json:"scope"`
	Module      string         `json:"module"`
	Description string         `json:"description"`
	Pattern     string         `json:"pattern,omitempty"`
	Example     string         `json:"example,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func display(topic topicmgr.Topic) TopicDisplay {
	return TopicDisplay{
		Name:        topic.Name(),
		Scope:       string(topic.Scope()),
		Module:      topic.Module(),
		Description: topic.Description(),
		Pattern:     topic.Pattern(),
		Example:     topic.Example(),
		Metadata:    topic.Metadata(),
	}
}

// WriteTable writes topics as an aligned table sorted by name.
func WriteTable(w io.Writer, topics []topicmgr.Topic) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSCOPE\tMODULE\tDESCRIPTION")
	for _, topic := range sorted(topics) {
		module := topic.Module()
		if module == "" {
			module = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", topic.Name(), topic.Scope(), module, truncate(topic.Description(), 50))
	}
	return tw.Flush()
}

// WriteJSON writes topics with their count as indented JSON.
func WriteJSON(w io.Writer, topics []topicmgr.Topic) error {
	out := struct {
		Topics []TopicDisplay `json:"topics"`
		Count  int            `json:"count"`
	}{Topics: make([]TopicDisplay, 0, len(topics))}
	for _, topic := range sorted(topics) {
		out.Topics = append(out.Topics, display(topic))
	}
	out.Count = len(out.Topics)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteDetails writes one topic in full.
func WriteDetails(w io.Writer, topic topicmgr.Topic, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(display(topic))
	}

	fmt.Fprintf(w, "Name:        %s\n", topic.Name())
	fmt.Fprintf(w, "Scope:       %s\n", topic.Scope())
	fmt.Fprintf(w, "Module:      %s\n", topic.Module())
	fmt.Fprintf(w, "Description: %s\n", topic.Description())
	if topic.Example() != "" {
		fmt.Fprintf(w, "Example:     %s\n", topic.Example())
	}
	if md := topic.Metadata(); len(md) > 0 {
		fmt.Fprintln(w, "Metadata:")
		for _, k := range slices.Sorted(maps.Keys(md)) {
			fmt.Fprintf(w, "  %s: %v\n", k, md[k])
		}
	}
	return nil
}

func sorted(topics []topicmgr.Topic) []topicmgr.Topic {
	return slices.SortedFunc(slices.Values(topics), func(a, b topicmgr.Topic) int {
		return strings.Compare(a.Name(), b.Name())
	})
}

// truncate shortens s to maxLen runes, ending in "...".
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(r[:maxLen-3]) + "..."
}
