package dashboard

import (
	"fmt"

	"github.com/nfrund/userhome/internal/domain"
)

// BatchItem is the answer to one invitation of a bulk accept or reject.
type BatchItem struct {
	Invitation domain.Invitation
	Err        error
}

// BatchResult collects the per-invitation answers of a bulk operation.
type BatchResult struct {
	Verb  string
	Items []BatchItem
}

// OK reports whether every request succeeded.
func (r BatchResult) OK() bool {
	return len(r.Failed()) == 0
}

// Failed returns the failed items in selection order.
func (r BatchResult) Failed() []BatchItem {
	var out []BatchItem
	for _, item := range r.Items {
		if item.Err != nil {
			out = append(out, item)
		}
	}
	return out
}

// Message is the toast shown after a fully successful batch.
func (r BatchResult) Message() string {
	return fmt.Sprintf("%s %d invitations!", r.Verb, len(r.Items))
}

// RedirectStatus is the status of the first failed item, or 0.
func (r BatchResult) RedirectStatus() int {
	if failed := r.Failed(); len(failed) > 0 {
		return domain.StatusOf(failed[0].Err)
	}
	return 0
}
