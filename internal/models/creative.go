package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Layout selects how a creative is rendered on the public page
type Layout string

const (
	LayoutCard     Layout = "card"
	LayoutBanner   Layout = "banner"
	LayoutCompact  Layout = "compact"
	LayoutFeatured Layout = "featured"
)

var (
	ErrUnknownLayout        = errors.New("unknown creative layout")
	ErrCreativeTitleMissing = errors.New("creative title is required")
	ErrCreativeLinkMissing  = errors.New("creative link is required")
)

// CreativeFields is the field set shared by every layout
type CreativeFields struct {
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	ImageURL        string `json:"image_url,omitempty"`
	LinkURL         string `json:"link_url"`
	ButtonText      string `json:"button_text,omitempty"`
	ButtonColor     string `json:"button_color,omitempty"`
	BackgroundColor string `json:"background_color,omitempty"`
	TextColor       string `json:"text_color,omitempty"`
	SponsorLabel    string `json:"sponsor_label,omitempty"`
}

// Creative is the advertiser-supplied content of a proposal. The set of
// implementations is closed: CardCreative, BannerCreative, CompactCreative
// and FeaturedCreative.
type Creative interface {
	Layout() Layout
	Fields() CreativeFields
	sealed()
}

type CardCreative struct {
	CreativeFields
}

type BannerCreative struct {
	CreativeFields
	FullWidth bool `json:"full_width"`
}

type CompactCreative struct {
	CreativeFields
}

type FeaturedCreative struct {
	CreativeFields
	Badge string `json:"badge,omitempty"`
}

func (CardCreative) Layout() Layout     { return LayoutCard }
func (BannerCreative) Layout() Layout   { return LayoutBanner }
func (CompactCreative) Layout() Layout  { return LayoutCompact }
func (FeaturedCreative) Layout() Layout { return LayoutFeatured }

func (c CardCreative) Fields() CreativeFields     { return c.CreativeFields }
func (c BannerCreative) Fields() CreativeFields   { return c.CreativeFields }
func (c CompactCreative) Fields() CreativeFields  { return c.CreativeFields }
func (c FeaturedCreative) Fields() CreativeFields { return c.CreativeFields }

func (CardCreative) sealed()     {}
func (BannerCreative) sealed()   {}
func (CompactCreative) sealed()  {}
func (FeaturedCreative) sealed() {}

// ValidateCreative checks the presence rules every layout must satisfy
func ValidateCreative(c Creative) error {
	if c == nil {
		return ErrCreativeTitleMissing
	}
	f := c.Fields()
	if strings.TrimSpace(f.Title) == "" {
		return ErrCreativeTitleMissing
	}
	if strings.TrimSpace(f.LinkURL) == "" {
		return ErrCreativeLinkMissing
	}
	return nil
}

// creativeEnvelope is the wire and storage shape of a creative
type creativeEnvelope struct {
	Layout Layout `json:"layout"`
	CreativeFields
	FullWidth bool   `json:"full_width,omitempty"`
	Badge     string `json:"badge,omitempty"`
}

func toEnvelope(c Creative) creativeEnvelope {
	switch v := c.(type) {
	case CardCreative:
		return creativeEnvelope{Layout: LayoutCard, CreativeFields: v.CreativeFields}
	case BannerCreative:
		return creativeEnvelope{Layout: LayoutBanner, CreativeFields: v.CreativeFields, FullWidth: v.FullWidth}
	case CompactCreative:
		return creativeEnvelope{Layout: LayoutCompact, CreativeFields: v.CreativeFields}
	case FeaturedCreative:
		return creativeEnvelope{Layout: LayoutFeatured, CreativeFields: v.CreativeFields, Badge: v.Badge}
	default:
		panic(fmt.Sprintf("models: unhandled creative type %T", c))
	}
}

func fromEnvelope(e creativeEnvelope) (Creative, error) {
	switch e.Layout {
	case LayoutCard, "":
		return CardCreative{CreativeFields: e.CreativeFields}, nil
	case LayoutBanner:
		return BannerCreative{CreativeFields: e.CreativeFields, FullWidth: e.FullWidth}, nil
	case LayoutCompact:
		return CompactCreative{CreativeFields: e.CreativeFields}, nil
	case LayoutFeatured:
		return FeaturedCreative{CreativeFields: e.CreativeFields, Badge: e.Badge}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayout, e.Layout)
	}
}

// CreativePayload wraps a Creative for JSON transport and database storage
type CreativePayload struct {
	Creative
}

func (p CreativePayload) MarshalJSON() ([]byte, error) {
	if p.Creative == nil {
		return []byte("null"), nil
	}
	return json.Marshal(toEnvelope(p.Creative))
}

func (p *CreativePayload) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		p.Creative = nil
		return nil
	}
	var env creativeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	c, err := fromEnvelope(env)
	if err != nil {
		return err
	}
	p.Creative = c
	return nil
}

// Value implements driver.Valuer
func (p CreativePayload) Value() (driver.Value, error) {
	if p.Creative == nil {
		return "{}", nil
	}
	b, err := json.Marshal(toEnvelope(p.Creative))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (p *CreativePayload) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		p.Creative = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into CreativePayload", value)
	}
	return p.UnmarshalJSON(data)
}

// CreativePatch is a shallow, field-wise update of a creative. Nil fields are
// left untouched. Changing the layout keeps the common fields.
type CreativePatch struct {
	Layout          *Layout `json:"layout"`
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	ImageURL        *string `json:"image_url"`
	LinkURL         *string `json:"link_url"`
	ButtonText      *string `json:"button_text"`
	ButtonColor     *string `json:"button_color"`
	BackgroundColor *string `json:"background_color"`
	TextColor       *string `json:"text_color"`
	SponsorLabel    *string `json:"sponsor_label"`
	FullWidth       *bool   `json:"full_width"`
	Badge           *string `json:"badge"`
}

// Apply merges the patch into c and returns the resulting creative
func (p CreativePatch) Apply(c Creative) (Creative, error) {
	env := creativeEnvelope{Layout: LayoutCard}
	if c != nil {
		env = toEnvelope(c)
	}

	if p.Layout != nil {
		env.Layout = *p.Layout
	}
	setString(&env.Title, p.Title)
	setString(&env.Description, p.Description)
	setString(&env.ImageURL, p.ImageURL)
	setString(&env.LinkURL, p.LinkURL)
	setString(&env.ButtonText, p.ButtonText)
	setString(&env.ButtonColor, p.ButtonColor)
	setString(&env.BackgroundColor, p.BackgroundColor)
	setString(&env.TextColor, p.TextColor)
	setString(&env.SponsorLabel, p.SponsorLabel)
	setString(&env.Badge, p.Badge)
	if p.FullWidth != nil {
		env.FullWidth = *p.FullWidth
	}

	return fromEnvelope(env)
}

// IsEmpty reports whether the patch changes nothing
func (p CreativePatch) IsEmpty() bool {
	return p == CreativePatch{}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
