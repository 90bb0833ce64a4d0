// Package catalog loads listing catalogs written in CUE and seeds them into
// a store.
//
// A catalog directory holds one CUE package:
//
//	package catalog
//
//	seller: "seller-1": email: "ana@example.test"
//
//	listing: "denim-jacket": {
//		title:       "Denim jacket"
//		price_cents: 2500
//		category:    "Outerwear"
//		size:        "M"
//		seller:      "seller-1"
//	}
//
// Every listing is checked against the embedded #Listing schema, then
// against the same validator the listing form uses.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/reelfeed/internal/model"
)

//go:embed schema.cue
var schemaCUE string

// Seller is a seller declared in a catalog.
type Seller struct {
	ID    string
	Email string
}

// Entry is one compiled listing with its catalog key.
type Entry struct {
	Key   string
	Draft model.ListingDraft
}

// Catalog is a compiled catalog. Sellers and Entries are sorted by key.
type Catalog struct {
	Sellers   []Seller
	Entries   []Entry
	FileCount int
}

// CompileError is a catalog error with its CUE position, when known.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadDir loads and compiles the CUE package in dir.
func LoadDir(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, fmt.Errorf("scan catalog directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	if err := instances[0].Err; err != nil {
		return nil, formatCUEError(err)
	}

	value := ctx.BuildInstance(instances[0])
	cat, err := compile(ctx, value)
	if err != nil {
		return nil, err
	}
	cat.FileCount = len(files)
	return cat, nil
}

// LoadString compiles a catalog from source text.
func LoadString(src, filename string) (*Catalog, error) {
	ctx := cuecontext.New()
	value := ctx.CompileString(src, cue.Filename(filename))
	cat, err := compile(ctx, value)
	if err != nil {
		return nil, err
	}
	cat.FileCount = 1
	return cat, nil
}

// schema returns the #Listing schema with the category and size
// enumerations of the model.
func schema(ctx *cue.Context) cue.Value {
	src := schemaCUE +
		"\n#Category: " + disjunction(model.ListingCategories) +
		"\n#Size: " + disjunction(model.ListingSizes) + "\n"
	return ctx.CompileString(src, cue.Filename("schema.cue"))
}

func disjunction(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(v)
	}
	return strings.Join(quoted, " | ")
}

func compile(ctx *cue.Context, value cue.Value) (*Catalog, error) {
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	s := schema(ctx)
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("catalog schema: %w", err)
	}

	unified := s.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	cat := &Catalog{}

	sellers, err := fields(unified, "seller")
	if err != nil {
		return nil, err
	}
	for _, f := range sellers {
		var raw struct {
			Email string `json:"email"`
		}
		if err := f.value.Decode(&raw); err != nil {
			return nil, formatCUEError(err)
		}
		cat.Sellers = append(cat.Sellers, Seller{ID: f.label, Email: raw.Email})
	}

	listings, err := fields(unified, "listing")
	if err != nil {
		return nil, err
	}
	for _, f := range listings {
		draft, err := compileListing(f.value)
		if err != nil {
			return nil, err
		}
		cat.Entries = append(cat.Entries, Entry{Key: f.label, Draft: draft})
	}
	if len(cat.Entries) == 0 {
		return nil, &CompileError{Field: "listing", Message: "catalog declares no listings", Pos: value.Pos()}
	}
	return cat, nil
}

type field struct {
	label string
	value cue.Value
}

// fields returns the fields of a top-level struct sorted by label.
func fields(v cue.Value, name string) ([]field, error) {
	sv := v.LookupPath(cue.ParsePath(name))
	if !sv.Exists() {
		return nil, nil
	}
	iter, err := sv.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []field
	for iter.Next() {
		out = append(out, field{label: iter.Selector().Unquoted(), value: iter.Value()})
	}
	slices.SortFunc(out, func(a, b field) int { return strings.Compare(a.label, b.label) })
	return out, nil
}

type rawListing struct {
	Title      string `json:"title"`
	PriceCents int64  `json:"price_cents"`
	Category   string `json:"category"`
	Size       string `json:"size"`
	Seller     string `json:"seller"`
	VideoURL   string `json:"video_url"`
	ThumbURL   string `json:"thumb_url"`
	CreatedAt  string `json:"created_at"`
}

func compileListing(v cue.Value) (model.ListingDraft, error) {
	var raw rawListing
	if err := v.Decode(&raw); err != nil {
		return model.ListingDraft{}, formatCUEError(err)
	}

	draft := model.ListingDraft{
		Title:      raw.Title,
		PriceCents: raw.PriceCents,
		Category:   raw.Category,
		Size:       raw.Size,
		VideoURL:   raw.VideoURL,
		ThumbURL:   raw.ThumbURL,
		SellerID:   raw.Seller,
	}
	if raw.CreatedAt != "" {
		t, err := time.Parse(time.RFC3339, raw.CreatedAt)
		if err != nil {
			return model.ListingDraft{}, &CompileError{
				Field:   "created_at",
				Message: fmt.Sprintf("invalid timestamp %q: want RFC 3339", raw.CreatedAt),
				Pos:     v.LookupPath(cue.ParsePath("created_at")).Pos(),
			}
		}
		draft.CreatedAt = t.UTC()
	}

	if err := model.ValidateDraft(draft); err != nil {
		msg := err.Error()
		var fe *model.Error
		if errors.As(err, &fe) {
			msg = fe.Message
		}
		return model.ListingDraft{}, &CompileError{Field: "listing", Message: msg, Pos: v.Pos()}
	}
	return draft, nil
}

// formatCUEError keeps the first CUE error with its position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	format, args := first.Msg()
	ce := &CompileError{
		Field:   "cue",
		Message: fmt.Sprintf(format, args...),
	}
	if path := first.Path(); len(path) > 0 {
		ce.Field = strings.Join(path, ".")
	}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}
