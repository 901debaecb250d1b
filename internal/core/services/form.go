// internal/core/services/form.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ammerola/sweetshop/internal/core/domain"
	"github.com/ammerola/sweetshop/internal/core/ports"
)

// DraftMode tells whether a draft creates a new item or edits an existing one.
type DraftMode int

const (
	DraftCreate DraftMode = iota
	DraftEdit
)

func (m DraftMode) String() string {
	if m == DraftEdit {
		return "edit"
	}
	return "create"
}

// SuccessMessage is the notification shown after a successful submit.
func (m DraftMode) SuccessMessage() string {
	if m == DraftEdit {
		return "Sweet updated successfully"
	}
	return "Sweet created successfully"
}

// Draft is the working copy of an item in the add/edit form. Price and
// quantity hold the raw input text until validation.
type Draft struct {
	TargetID domain.ItemID
	Name     string
	Category string
	Price    string
	Quantity string
	Image    *domain.Image
	ImageURL string
}

// NewDraft returns an empty create-mode draft.
func NewDraft() Draft {
	return Draft{}
}

// DraftFromItem seeds an edit-mode draft from an existing item.
func DraftFromItem(item domain.Item) Draft {
	return Draft{
		TargetID: item.ID,
		Name:     item.Name,
		Category: string(item.Category),
		Price:    item.Price.String(),
		Quantity: strconv.Itoa(item.Quantity),
		ImageURL: item.ImageURL,
	}
}

// Mode reports create or edit.
func (d Draft) Mode() DraftMode {
	if d.TargetID != "" {
		return DraftEdit
	}
	return DraftCreate
}

// Validate checks the draft and converts it into a request payload. The
// image reference is left to the caller, who must encode any attachment.
func (d Draft) Validate() (domain.ItemInput, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return domain.ItemInput{}, domain.NewValidationError("name", "Name is required")
	}
	category := strings.TrimSpace(d.Category)
	if category == "" {
		return domain.ItemInput{}, domain.NewValidationError("category", "Category is required")
	}

	rawPrice := strings.TrimSpace(d.Price)
	if rawPrice == "" {
		return domain.ItemInput{}, domain.NewValidationError("price", "Price is required")
	}
	price, err := decimal.NewFromString(rawPrice)
	if err != nil {
		return domain.ItemInput{}, &domain.ValidationError{Field: "price", Message: "Price must be a number", Err: err}
	}
	if price.IsNegative() {
		return domain.ItemInput{}, domain.NewValidationError("price", "Price cannot be negative")
	}

	rawQty := strings.TrimSpace(d.Quantity)
	if rawQty == "" {
		return domain.ItemInput{}, domain.NewValidationError("quantity", "Quantity is required")
	}
	qty, err := strconv.Atoi(rawQty)
	if err != nil {
		return domain.ItemInput{}, &domain.ValidationError{Field: "quantity", Message: "Quantity must be a whole number", Err: err}
	}
	if qty < 0 {
		return domain.ItemInput{}, domain.NewValidationError("quantity", "Quantity cannot be negative")
	}

	if d.Image != nil {
		if err := domain.CheckImage(*d.Image); err != nil {
			return domain.ItemInput{}, err
		}
	}

	return domain.ItemInput{
		Name:     name,
		Category: domain.Category(category),
		Price:    price,
		Quantity: qty,
		ImageURL: d.ImageURL,
	}, nil
}

// DraftAction is a named transition of a Draft.
type DraftAction interface {
	draftAction()
}

type (
	SetName     struct{ Value string }
	SetCategory struct{ Value string }
	SetPrice    struct{ Value string }
	SetQuantity struct{ Value string }
	// AttachImage replaces any attachment. Oversized images are refused and
	// leave the draft unchanged.
	AttachImage struct{ Image domain.Image }
	// ClearImage drops the attachment and the existing image reference.
	ClearImage struct{}
)

func (SetName) draftAction()     {}
func (SetCategory) draftAction() {}
func (SetPrice) draftAction()    {}
func (SetQuantity) draftAction() {}
func (AttachImage) draftAction() {}
func (ClearImage) draftAction()  {}

// ReduceDraft applies an action and returns the next draft. On error the
// input draft is returned unchanged.
func ReduceDraft(d Draft, action DraftAction) (Draft, error) {
	switch a := action.(type) {
	case SetName:
		d.Name = a.Value
	case SetCategory:
		d.Category = a.Value
	case SetPrice:
		d.Price = a.Value
	case SetQuantity:
		d.Quantity = a.Value
	case AttachImage:
		if err := domain.CheckImage(a.Image); err != nil {
			return d, err
		}
		img := a.Image
		d.Image = &img
	case ClearImage:
		d.Image = nil
		d.ImageURL = ""
	default:
		return d, fmt.Errorf("unknown draft action %T", action)
	}
	return d, nil
}

// FormController owns one draft and its submission.
type FormController struct {
	store  *CatalogStore
	images ports.ImageStore
	logger *slog.Logger

	mu    sync.Mutex
	draft Draft
	err   error
	busy  bool
}

// NewFormController creates a controller around draft.
func NewFormController(store *CatalogStore, images ports.ImageStore, draft Draft, logger *slog.Logger) *FormController {
	return &FormController{
		store:  store,
		images: images,
		logger: logger.With(slog.String("component", "form")),
		draft:  draft,
	}
}

// Draft returns the current working copy.
func (f *FormController) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// Err returns the error shown inline, if any.
func (f *FormController) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Busy reports whether a submission is in flight.
func (f *FormController) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

// Dispatch applies a draft action. The draft is frozen while submitting.
func (f *FormController) Dispatch(action DraftAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.busy {
		return domain.ErrSubmissionInFlight
	}
	next, err := ReduceDraft(f.draft, action)
	if err != nil {
		f.err = err
		return err
	}
	f.draft = next
	f.err = nil
	return nil
}

// Submit validates the draft, encodes any attached image and creates or
// updates the item. On failure the draft is kept for correction; on success
// it is discarded.
func (f *FormController) Submit(ctx context.Context) (domain.Item, error) {
	f.mu.Lock()
	if f.busy {
		f.mu.Unlock()
		return domain.Item{}, domain.ErrSubmissionInFlight
	}
	draft := f.draft
	input, err := draft.Validate()
	if err != nil {
		f.err = err
		f.mu.Unlock()
		return domain.Item{}, err
	}
	f.busy = true
	f.err = nil
	f.mu.Unlock()

	if draft.Mode() == DraftEdit {
		f.logger.DebugContext(ctx, "submitting item update", slog.String("item_id", draft.TargetID.String()))
	} else {
		f.logger.DebugContext(ctx, "submitting new item", slog.String("name", input.Name))
	}
	item, err := saveDraft(ctx, f.store, f.images, draft, input)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = false
	if err != nil {
		f.err = err
		return domain.Item{}, err
	}
	f.draft = NewDraft()
	return item, nil
}

// ItemWriter persists validated items. *CatalogStore satisfies it, as does
// any ports.CatalogClient for callers that keep no cached list.
type ItemWriter interface {
	Create(ctx context.Context, input domain.ItemInput) (domain.Item, error)
	Update(ctx context.Context, id domain.ItemID, input domain.ItemInput) (domain.Item, error)
}

// SaveDraft validates draft, stores its image, if any, and creates or
// updates the item through items.
func SaveDraft(ctx context.Context, items ItemWriter, images ports.ImageStore, draft Draft) (domain.Item, error) {
	input, err := draft.Validate()
	if err != nil {
		return domain.Item{}, err
	}
	return saveDraft(ctx, items, images, draft, input)
}

func saveDraft(ctx context.Context, items ItemWriter, images ports.ImageStore, draft Draft, input domain.ItemInput) (domain.Item, error) {
	if draft.Image != nil {
		ref, err := images.Put(ctx, *draft.Image)
		if err != nil {
			return domain.Item{}, fmt.Errorf("failed to store image: %w", err)
		}
		input.ImageURL = ref
	}

	if draft.Mode() == DraftEdit {
		return items.Update(ctx, draft.TargetID, input)
	}
	return items.Create(ctx, input)
}
