// Package admin is the generic operator-facing record editor: every registered
// resource can be listed with search, filters and ordering, fetched, patched on its
// editable fields and deleted.
package admin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"animeverse/internal/cache"
	"animeverse/internal/config"
	"animeverse/internal/models"
	"animeverse/internal/observability"
	"animeverse/internal/pagination"
	"animeverse/internal/validation"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Default branding of the admin site.
const (
	DefaultSiteHeader = "AnimeVerse Admin"
	DefaultSiteTitle  = "AnimeVerse Admin"
	DefaultIndexTitle = "Welcome to AnimeVerse Administration"
)

// SiteConfig carries the admin branding.
type SiteConfig struct {
	Header     string `json:"site_header"`
	Title      string `json:"site_title"`
	IndexTitle string `json:"index_title"`
}

// SiteConfigFrom reads the branding from cfg, falling back to the defaults.
func SiteConfigFrom(cfg *config.Config) SiteConfig {
	site := SiteConfig{Header: DefaultSiteHeader, Title: DefaultSiteTitle, IndexTitle: DefaultIndexTitle}
	if cfg == nil {
		return site
	}
	if cfg.AdminSiteHeader != "" {
		site.Header = cfg.AdminSiteHeader
	}
	if cfg.AdminSiteTitle != "" {
		site.Title = cfg.AdminSiteTitle
	}
	if cfg.AdminSiteIndexTitle != "" {
		site.IndexTitle = cfg.AdminSiteIndexTitle
	}
	return site
}

// Kind says how a filter or editable value is parsed.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindID
	KindRating
)

// Filter is an equality filter exposed as a query parameter.
type Filter struct {
	Param  string `json:"param"`
	Column string `json:"-"`
	Kind   Kind   `json:"-"`
}

// Editable is a field operators may change from a list row.
type Editable struct {
	Column string
	Kind   Kind
	// Rules are validator tags applied to string values.
	Rules string
}

// Resource describes how one model is exposed in the admin.
type Resource struct {
	Name         string
	Label        string
	Table        string
	ListColumns  []string
	SearchFields []string
	Filters      []Filter
	Editable     map[string]Editable
	Ordering     string
	// Preloads are loaded for single records.
	Preloads []string
	// Decorate adds computed columns (joins, counts) to list and detail queries.
	Decorate func(*gorm.DB) *gorm.DB
	// Invalidates marks resources whose changes alter cached public listings.
	Invalidates bool

	newRecord func() any
	newList   func() any
}

// Info is the public description of a resource.
type Info struct {
	Name         string   `json:"name"`
	Label        string   `json:"label"`
	ListColumns  []string `json:"list_columns"`
	SearchFields []string `json:"search_fields"`
	Filters      []string `json:"filters"`
	Editable     []string `json:"editable"`
}

func (r *Resource) info() Info {
	filters := make([]string, 0, len(r.Filters))
	for _, f := range r.Filters {
		filters = append(filters, f.Param)
	}
	editable := make([]string, 0, len(r.Editable))
	for name := range r.Editable {
		editable = append(editable, name)
	}
	sort.Strings(editable)
	return Info{
		Name:         r.Name,
		Label:        r.Label,
		ListColumns:  r.ListColumns,
		SearchFields: r.SearchFields,
		Filters:      filters,
		Editable:     editable,
	}
}

// ListParams narrows a resource listing.
type ListParams struct {
	Search  string
	Filters map[string]string
	Page    int
}

// ListResult is one page of a resource listing.
type ListResult struct {
	Resource string            `json:"resource"`
	Columns  []string          `json:"columns"`
	Items    any               `json:"items"`
	Page     pagination.Page   `json:"page"`
	Search   string            `json:"search,omitempty"`
	Filters  map[string]string `json:"filters,omitempty"`
}

// Admin serves the registered resources.
type Admin struct {
	db        *gorm.DB
	site      SiteConfig
	resources map[string]*Resource
	order     []string
}

// New returns an Admin with every model resource registered.
func New(db *gorm.DB, site SiteConfig) *Admin {
	a := &Admin{db: db, site: site, resources: make(map[string]*Resource)}
	for _, r := range defaultResources() {
		a.Register(r)
	}
	return a
}

// Register adds or replaces a resource.
func (a *Admin) Register(r *Resource) {
	if _, ok := a.resources[r.Name]; !ok {
		a.order = append(a.order, r.Name)
	}
	a.resources[r.Name] = r
}

func (a *Admin) Site() SiteConfig {
	return a.site
}

// Resources describes the registered resources in registration order.
func (a *Admin) Resources() []Info {
	out := make([]Info, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, a.resources[name].info())
	}
	return out
}

func (a *Admin) resource(name string) (*Resource, error) {
	r, ok := a.resources[name]
	if !ok {
		return nil, models.NewNotFoundError("Resource", name)
	}
	return r, nil
}

// List returns one page of a resource, searched across its search fields and
// filtered on its declared filters. Unknown filter parameters are ignored.
func (a *Admin) List(ctx context.Context, name string, params ListParams) (*ListResult, error) {
	r, err := a.resource(name)
	if err != nil {
		return nil, err
	}
	defer observability.TrackQuery("admin_list", r.Table)()

	base := a.db.WithContext(ctx).Model(r.newRecord())

	if term := strings.TrimSpace(params.Search); term != "" && len(r.SearchFields) > 0 {
		pattern := "%" + strings.ToLower(likeEscaper.Replace(term)) + "%"
		cond := a.db.Where(fmt.Sprintf(`LOWER(%s.%s) LIKE ? ESCAPE '\'`, r.Table, r.SearchFields[0]), pattern)
		for _, field := range r.SearchFields[1:] {
			cond = cond.Or(fmt.Sprintf(`LOWER(%s.%s) LIKE ? ESCAPE '\'`, r.Table, field), pattern)
		}
		base = base.Where(cond)
	}

	applied := map[string]string{}
	for _, f := range r.Filters {
		raw, ok := params.Filters[f.Param]
		if !ok || raw == "" {
			continue
		}
		value, err := parseValue(f.Param, raw, f.Kind)
		if err != nil {
			return nil, err
		}
		base = base.Where(fmt.Sprintf("%s.%s = ?", r.Table, f.Column), value)
		applied[f.Param] = raw
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	page := pagination.Paginate(total, params.Page, pagination.AdminPerPage)

	q := base
	if r.Decorate != nil {
		q = r.Decorate(q)
	}
	items := r.newList()
	if err := q.Order(r.Ordering).Limit(page.Limit()).Offset(page.Offset()).Find(items).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	return &ListResult{
		Resource: r.Name,
		Columns:  r.ListColumns,
		Items:    items,
		Page:     page,
		Search:   strings.TrimSpace(params.Search),
		Filters:  applied,
	}, nil
}

// Get loads one record with its relations.
func (a *Admin) Get(ctx context.Context, name string, id uint) (any, error) {
	r, err := a.resource(name)
	if err != nil {
		return nil, err
	}
	return a.load(ctx, r, id)
}

func (a *Admin) load(ctx context.Context, r *Resource, id uint) (any, error) {
	q := a.db.WithContext(ctx).Model(r.newRecord())
	if r.Decorate != nil {
		q = r.Decorate(q)
	}
	for _, p := range r.Preloads {
		q = q.Preload(p)
	}
	record := r.newRecord()
	if err := q.Where(r.Table+".id = ?", id).First(record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError(r.Label, id)
		}
		return nil, models.NewInternalError(err)
	}
	return record, nil
}

// Patch changes editable fields of a record. Every field is validated before
// anything is written.
func (a *Admin) Patch(ctx context.Context, name string, id uint, changes map[string]any) (any, error) {
	r, err := a.resource(name)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, models.NewValidationError("No changes submitted")
	}

	updates := make(map[string]any, len(changes))
	fields := map[string]string{}
	for field, raw := range changes {
		ed, ok := r.Editable[field]
		if !ok {
			fields[field] = "This field cannot be edited here."
			continue
		}
		value, err := editValue(field, raw, ed)
		if err != nil {
			var appErr *models.AppError
			if errors.As(err, &appErr) && appErr.Fields != nil {
				for k, v := range appErr.Fields {
					fields[k] = v
				}
				continue
			}
			return nil, err
		}
		updates[ed.Column] = value
	}
	if len(fields) > 0 {
		return nil, models.NewFieldErrors(fields)
	}

	res := a.db.WithContext(ctx).Model(r.newRecord()).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError(r.Label, id)
	}
	if r.Invalidates {
		cache.InvalidateListings(ctx)
	}
	return a.load(ctx, r, id)
}

// Delete removes a record; database constraints cascade to dependants.
func (a *Admin) Delete(ctx context.Context, name string, id uint) error {
	r, err := a.resource(name)
	if err != nil {
		return err
	}
	res := a.db.WithContext(ctx).Delete(r.newRecord(), id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(r.Label, id)
	}
	if r.Invalidates {
		cache.InvalidateListings(ctx)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func parseValue(field, raw string, kind Kind) (any, error) {
	switch kind {
	case KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, models.NewFieldErrors(map[string]string{field: "Enter true or false."})
		}
		return b, nil
	case KindID:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, models.NewFieldErrors(map[string]string{field: "Enter a whole number."})
		}
		return uint(n), nil
	case KindRating:
		d, ok := validation.ParseRating(raw)
		if !ok {
			return nil, models.NewFieldErrors(map[string]string{field: "Rating must be a number between 0 and 10 with at most one decimal place."})
		}
		return d, nil
	default:
		return raw, nil
	}
}

// editValue converts a JSON value into the database value of an editable field.
func editValue(field string, raw any, ed Editable) (any, error) {
	switch ed.Kind {
	case KindBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			return parseValue(field, v, KindBool)
		}
		return nil, models.NewFieldErrors(map[string]string{field: "Enter true or false."})
	case KindRating:
		switch v := raw.(type) {
		case nil:
			return decimal.NullDecimal{}, nil
		case string:
			if strings.TrimSpace(v) == "" {
				return decimal.NullDecimal{}, nil
			}
			d, err := parseValue(field, v, KindRating)
			if err != nil {
				return nil, err
			}
			return decimal.NewNullDecimal(d.(decimal.Decimal)), nil
		case float64:
			return editValue(field, strconv.FormatFloat(v, 'f', -1, 64), ed)
		}
		return nil, models.NewFieldErrors(map[string]string{field: "Enter a number."})
	default:
		s, ok := raw.(string)
		if !ok {
			return nil, models.NewFieldErrors(map[string]string{field: "Enter a text value."})
		}
		s = strings.TrimSpace(s)
		if ed.Rules != "" {
			if err := validation.ValidateField(field, s, ed.Rules); err != nil {
				return nil, err
			}
		}
		return s, nil
	}
}
