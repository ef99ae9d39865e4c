package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/nfrund/userhome/internal/domain"
)

// Kind names a labeled profile category.
type Kind string

const (
	KindEmail   Kind = "email"
	KindPhone   Kind = "phone"
	KindAddress Kind = "address"
	KindBank    Kind = "bank"
)

// FieldOps are the create, update and delete operations of one labeled
// category.
type FieldOps[T any] struct {
	Create func(ctx context.Context, username, label string, data T) error
	Update func(ctx context.Context, username, oldLabel, newLabel string, data T) error
	Delete func(ctx context.Context, username, label string) error
}

func EmailOps(p ProfileService) FieldOps[string] {
	return FieldOps[string]{Create: p.RegisterEmail, Update: p.UpdateEmail, Delete: p.DeleteEmail}
}

func PhoneOps(p ProfileService) FieldOps[string] {
	return FieldOps[string]{Create: p.RegisterPhone, Update: p.UpdatePhone, Delete: p.DeletePhone}
}

func AddressOps(p ProfileService) FieldOps[domain.Address] {
	return FieldOps[domain.Address]{Create: p.RegisterAddress, Update: p.UpdateAddress, Delete: p.DeleteAddress}
}

func BankOps(p ProfileService) FieldOps[domain.BankAccount] {
	return FieldOps[domain.BankAccount]{Create: p.RegisterBankAccount, Update: p.UpdateBankAccount, Delete: p.DeleteBankAccount}
}

// LabelResult is what a closed labeled dialog hands back. NewLabel is empty
// when the entry was removed.
type LabelResult[T any] struct {
	OriginalLabel string
	NewLabel      string
	Data          T
}

// ApplyLabelDiff reconciles a dialog result into a category map: the data
// goes under the new label and the original label disappears when it was
// cleared or changed.
func ApplyLabelDiff[T any](m map[string]T, r LabelResult[T]) {
	if r.NewLabel != "" {
		m[r.NewLabel] = r.Data
	}
	if r.NewLabel == "" || r.NewLabel != r.OriginalLabel {
		delete(m, r.OriginalLabel)
	}
}

// LabeledDialog edits one entry of a labeled category. An empty
// OriginalLabel means a new entry is being added.
type LabeledDialog[T any] struct {
	Kind          Kind
	Username      string
	OriginalLabel string
	Data          T
	DeleteAllowed bool

	ops     FieldOps[T]
	onClose func(LabelResult[T])
}

// NewLabeledDialog creates a dialog. onClose, when set, receives the result
// of every successful submission.
func NewLabeledDialog[T any](kind Kind, username, label string, data T, ops FieldOps[T], onClose func(LabelResult[T])) *LabeledDialog[T] {
	return &LabeledDialog[T]{
		Kind:          kind,
		Username:      username,
		OriginalLabel: label,
		Data:          data,
		DeleteAllowed: label != "",
		ops:           ops,
		onClose:       onClose,
	}
}

// IsNew reports whether the dialog adds an entry.
func (d *LabeledDialog[T]) IsNew() bool {
	return d.OriginalLabel == ""
}

// Save creates or updates depending on IsNew.
func (d *LabeledDialog[T]) Save(ctx context.Context, label string, data T) Outcome[LabelResult[T]] {
	if d.IsNew() {
		return d.Create(ctx, label, data)
	}
	return d.Update(ctx, label, data)
}

func (d *LabeledDialog[T]) Create(ctx context.Context, label string, data T) Outcome[LabelResult[T]] {
	err := d.ops.Create(ctx, d.Username, label, data)
	return d.finish(err, label, data)
}

func (d *LabeledDialog[T]) Update(ctx context.Context, newLabel string, data T) Outcome[LabelResult[T]] {
	err := d.ops.Update(ctx, d.Username, d.OriginalLabel, newLabel, data)
	return d.finish(err, newLabel, data)
}

// Remove deletes the entry. A conflict is not anticipated here and
// redirects like any other failure.
func (d *LabeledDialog[T]) Remove(ctx context.Context) Outcome[LabelResult[T]] {
	if err := d.ops.Delete(ctx, d.Username, d.OriginalLabel); err != nil {
		return redirect[LabelResult[T]](err)
	}
	return d.close(LabelResult[T]{OriginalLabel: d.OriginalLabel})
}

func (d *LabeledDialog[T]) finish(err error, label string, data T) Outcome[LabelResult[T]] {
	switch {
	case err == nil:
		return d.close(LabelResult[T]{OriginalLabel: d.OriginalLabel, NewLabel: label, Data: data})
	case errors.Is(err, domain.ErrDuplicateLabel):
		return invalid[LabelResult[T]]("label", KeyDuplicate)
	}
	return redirect[LabelResult[T]](err)
}

func (d *LabeledDialog[T]) close(r LabelResult[T]) Outcome[LabelResult[T]] {
	if d.onClose != nil {
		d.onClose(r)
	}
	return closed(r)
}

// openLabeled builds a dialog over the cached profile. The diff of every
// successful submission is applied to the cached category.
func openLabeled[T any](v *View, kind Kind, label string, ops FieldOps[T], entries func(*domain.User) map[string]T) (*LabeledDialog[T], error) {
	u := v.User()
	if u == nil {
		return nil, fmt.Errorf("open %s dialog: profile not loaded", kind)
	}
	var data T
	if label != "" {
		var ok bool
		if data, ok = entries(u)[label]; !ok {
			return nil, fmt.Errorf("open %s dialog %q: %w", kind, label, domain.ErrNotFound)
		}
	}
	return NewLabeledDialog(kind, v.Username, label, data, ops, func(r LabelResult[T]) {
		v.updateUser(func(u *domain.User) { ApplyLabelDiff(entries(u), r) })
	}), nil
}

// EmailDialog opens the email dialog for label, or an empty one for "". The
// last address cannot be deleted.
func (v *View) EmailDialog(label string) (*LabeledDialog[string], error) {
	d, err := openLabeled(v, KindEmail, label, EmailOps(v.svc.Profile), emailEntries)
	if err != nil {
		return nil, err
	}
	d.DeleteAllowed = label != "" && len(v.User().Email) > 1
	return d, nil
}

func (v *View) PhoneDialog(label string) (*LabeledDialog[string], error) {
	return openLabeled(v, KindPhone, label, PhoneOps(v.svc.Profile), phoneEntries)
}

func (v *View) AddressDialog(label string) (*LabeledDialog[domain.Address], error) {
	return openLabeled(v, KindAddress, label, AddressOps(v.svc.Profile), addressEntries)
}

func (v *View) BankDialog(label string) (*LabeledDialog[domain.BankAccount], error) {
	return openLabeled(v, KindBank, label, BankOps(v.svc.Profile), bankEntries)
}

func emailEntries(u *domain.User) map[string]string            { return u.Email }
func phoneEntries(u *domain.User) map[string]string            { return u.Phone }
func addressEntries(u *domain.User) map[string]domain.Address  { return u.Address }
func bankEntries(u *domain.User) map[string]domain.BankAccount { return u.Bank }
