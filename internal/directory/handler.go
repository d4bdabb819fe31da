package directory

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/userdesk/internal/audit"
	"github.com/noah-isme/userdesk/internal/auth"
	"github.com/noah-isme/userdesk/internal/shared"
	"github.com/noah-isme/userdesk/internal/view"
)

// Toast texts.
const (
	msgFetchFailed   = "Failed to fetch users"
	msgUpdated       = "User updated successfully"
	msgUpdateFailed  = "Failed to update user"
	msgDeleted       = "User deleted successfully"
	msgDeleteFailed  = "Failed to delete user"
	msgNothingToSave = "No changes to save"
)

// Handler serves the user list and its edit/delete flows.
type Handler struct {
	logger    *slog.Logger
	registry  *Registry
	engine    Engine
	templates *view.Engine
	csrf      *shared.CSRFManager
	audit     *audit.Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, registry *Registry, engine Engine, templates *view.Engine, csrf *shared.CSRFManager, auditor *audit.Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		registry:  registry,
		engine:    engine,
		templates: templates,
		csrf:      csrf,
		audit:     auditor,
		validator: validator.New(),
	}
}

// MountRoutes registers directory routes. Callers wrap them in the route guard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listUsers)
	r.Route("/users/{id}", func(r chi.Router) {
		r.Get("/edit", h.showEditForm)
		r.Post("/", h.updateUser)
		r.Get("/delete", h.confirmDelete)
		r.Post("/delete", h.deleteUser)
	})
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

type pageLink struct {
	Number  int
	URL     string
	Current bool
}

type pagination struct {
	Current int
	Total   int
	PrevURL string
	NextURL string
	Pages   []pageLink
}

type listPageData struct {
	Users        []User
	Shown        int
	Loaded       int
	Loading      bool
	Term         string
	Active       bool
	ClearURL     string
	ReturnTo     string
	FieldOptions []option
	SortOptions  []option
	Pagination   pagination
}

type editForm struct {
	Email     string `validate:"required,email"`
	FirstName string `validate:"required,min=2"`
	LastName  string `validate:"required,min=2"`
}

var editMessages = map[string]string{
	"Email.required":     "Invalid email address",
	"Email.email":        "Invalid email address",
	"FirstName.required": "First name must be at least 2 characters",
	"FirstName.min":      "First name must be at least 2 characters",
	"LastName.required":  "Last name must be at least 2 characters",
	"LastName.min":       "Last name must be at least 2 characters",
}

type editPageData struct {
	User     User
	Form     editForm
	Errors   map[string]string
	ReturnTo string
}

type deletePageData struct {
	User     User
	ReturnTo string
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	model := h.model(r)
	query, page := ParseListQuery(r.URL.Query())

	// A fetch failure takes the toast slot; queued flashes wait for the next render.
	var flash *shared.FlashMessage
	if err := h.load(ctx, model, page); err != nil {
		h.logger.Warn("fetch users", slog.Int("page", page), slog.Any("error", err))
		flash = &shared.FlashMessage{Kind: shared.FlashError, Message: msgFetchFailed}
	} else {
		flash = shared.PopFlash(ctx)
	}

	state := model.State()
	visible := h.engine.Apply(state.Items, query.Filter, query.Sort)
	data := listPageData{
		Users:        visible,
		Shown:        len(visible),
		Loaded:       len(state.Items),
		Loading:      state.Loading,
		Term:         query.Filter.Term,
		Active:       query.Active(),
		ClearURL:     ListURL(Query{}, state.CurrentPage),
		ReturnTo:     ListURL(query, state.CurrentPage),
		FieldOptions: fieldOptions(query.Filter.Field),
		SortOptions:  sortOptions(query.Sort),
		Pagination:   buildPagination(query, state.CurrentPage, state.TotalPages),
	}
	h.render(w, r, "pages/users.html", "Users", data, flash, http.StatusOK)
}

// load makes sure a page is loaded, then moves to the requested page if it
// differs. Superseded fetches are not failures: a newer one owns the state.
func (h *Handler) load(ctx context.Context, model *ListModel, page int) error {
	if !model.State().Loaded {
		if err := model.FetchPage(ctx, 1); err != nil && !errors.Is(err, ErrSuperseded) {
			return err
		}
	}
	if page <= 0 {
		return nil
	}
	if _, err := model.ChangePage(ctx, page); err != nil && !errors.Is(err, ErrSuperseded) {
		return err
	}
	return nil
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	user, returnTo, ok := h.lookup(w, r)
	if !ok {
		return
	}
	data := editPageData{
		User:     user,
		Form:     editForm{Email: user.Email, FirstName: user.FirstName, LastName: user.LastName},
		Errors:   map[string]string{},
		ReturnTo: returnTo,
	}
	h.render(w, r, "pages/user_edit.html", "Edit User", data, shared.PopFlash(r.Context()), http.StatusOK)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	user, returnTo, ok := h.lookup(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	form := editForm{
		Email:     strings.TrimSpace(r.PostFormValue("email")),
		FirstName: strings.TrimSpace(r.PostFormValue("first_name")),
		LastName:  strings.TrimSpace(r.PostFormValue("last_name")),
	}
	data := editPageData{User: user, Form: form, Errors: map[string]string{}, ReturnTo: returnTo}

	if err := h.validator.Struct(form); err != nil {
		data.Errors = shared.ValidationMessages(err, editMessages)
		h.render(w, r, "pages/user_edit.html", "Edit User", data, nil, http.StatusBadRequest)
		return
	}

	patch := Diff(user, form.Email, form.FirstName, form.LastName)
	if patch.Empty() {
		h.redirectWithFlash(w, r, returnTo, shared.FlashSuccess, msgNothingToSave)
		return
	}

	if err := h.model(r).UpdateUser(ctx, user.ID, patch); err != nil {
		h.logger.Warn("update user", slog.Int64("user_id", user.ID), slog.Any("error", err))
		flash := &shared.FlashMessage{Kind: shared.FlashError, Message: msgUpdateFailed}
		h.render(w, r, "pages/user_edit.html", "Edit User", data, flash, http.StatusBadGateway)
		return
	}
	h.record(ctx, audit.ActionUserUpdate, user.ID, map[string]any{"fields": patchedFields(patch)})
	h.redirectWithFlash(w, r, returnTo, shared.FlashSuccess, msgUpdated)
}

func (h *Handler) confirmDelete(w http.ResponseWriter, r *http.Request) {
	user, returnTo, ok := h.lookup(w, r)
	if !ok {
		return
	}
	data := deletePageData{User: user, ReturnTo: returnTo}
	h.render(w, r, "pages/user_delete.html", "Delete User", data, shared.PopFlash(r.Context()), http.StatusOK)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	user, returnTo, ok := h.lookup(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	if err := h.model(r).DeleteUser(ctx, user.ID); err != nil {
		h.logger.Warn("delete user", slog.Int64("user_id", user.ID), slog.Any("error", err))
		h.redirectWithFlash(w, r, returnTo, shared.FlashError, msgDeleteFailed)
		return
	}
	h.record(ctx, audit.ActionUserDelete, user.ID, map[string]any{"email": user.Email})
	h.redirectWithFlash(w, r, returnTo, shared.FlashSuccess, msgDeleted)
}

// lookup resolves {id} against the loaded page. Users outside the loaded page
// cannot be edited: the view-model only mutates what it holds.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (User, string, bool) {
	returnTo := SafeReturn(r.FormValue("return"))
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return User{}, "", false
	}
	user, ok := h.model(r).Find(id)
	if !ok {
		h.redirectWithFlash(w, r, returnTo, shared.FlashError, shared.UserSafeMessage(shared.ErrNotFound))
		return User{}, "", false
	}
	return user, returnTo, true
}

func (h *Handler) model(r *http.Request) *ListModel {
	sessionID := ""
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sessionID = sess.ID
	}
	return h.registry.Model(sessionID)
}

func (h *Handler) record(ctx context.Context, action string, id int64, meta map[string]any) {
	actor := ""
	if sess := shared.SessionFromContext(ctx); sess != nil {
		actor = sess.Get(auth.ActorSessionKey)
	}
	_ = h.audit.Record(ctx, audit.Entry{
		Actor:    actor,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data any, flash *shared.FlashMessage, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	viewData := view.TemplateData{
		Title:         title,
		CSRFToken:     csrfToken,
		Flash:         flash,
		CurrentPath:   r.URL.Path,
		Authenticated: auth.IsAuthenticated(r.Context()),
		Data:          data,
	}
	if err := h.templates.RenderStatus(w, template, status, viewData); err != nil {
		h.logger.Error("render template", slog.String("template", template), slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	shared.AddFlash(r.Context(), kind, message)
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// ParseListQuery reads q, field, sort and page from a list URL. A missing or
// invalid page is 0.
func ParseListQuery(values url.Values) (Query, int) {
	query := Query{
		Filter: FilterSpec{
			Term:  strings.TrimSpace(values.Get("q")),
			Field: ParseField(values.Get("field")),
		},
		Sort: ParseSort(values.Get("sort")),
	}
	page, err := strconv.Atoi(values.Get("page"))
	if err != nil || page < 0 {
		page = 0
	}
	return query, page
}

// ListURL encodes a list view location. Default filter and sort values are
// omitted; a positive page is always written so links back to page 1 move
// the session there. Page 0 means "stay on the loaded page".
func ListURL(query Query, page int) string {
	values := url.Values{}
	if query.Filter.Term != "" {
		values.Set("q", query.Filter.Term)
	}
	if query.Filter.Field != "" && query.Filter.Field != FieldAll {
		values.Set("field", string(query.Filter.Field))
	}
	if !query.Sort.None() {
		values.Set("sort", query.Sort.String())
	}
	if page > 0 {
		values.Set("page", strconv.Itoa(page))
	}
	if len(values) == 0 {
		return "/"
	}
	return "/?" + values.Encode()
}

// SafeReturn keeps only same-origin relative paths.
func SafeReturn(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	return raw
}

func buildPagination(query Query, current, total int) pagination {
	p := pagination{Current: current, Total: total}
	if total <= 0 {
		return p
	}
	if current > 1 {
		p.PrevURL = ListURL(query, current-1)
	}
	if current < total {
		p.NextURL = ListURL(query, current+1)
	}
	p.Pages = make([]pageLink, 0, total)
	for n := 1; n <= total; n++ {
		p.Pages = append(p.Pages, pageLink{Number: n, URL: ListURL(query, n), Current: n == current})
	}
	return p
}

func fieldOptions(selected Field) []option {
	if selected == "" {
		selected = FieldAll
	}
	opts := []option{
		{Value: string(FieldAll), Label: "All Fields"},
		{Value: string(FieldFirstName), Label: "First Name"},
		{Value: string(FieldLastName), Label: "Last Name"},
		{Value: string(FieldEmail), Label: "Email"},
	}
	for i := range opts {
		opts[i].Selected = opts[i].Value == string(selected)
	}
	return opts
}

var fieldLabels = map[Field]string{
	FieldFirstName: "First Name",
	FieldLastName:  "Last Name",
	FieldEmail:     "Email",
}

func sortOptions(selected SortSpec) []option {
	opts := []option{{Value: NoSort.String(), Label: "No Sorting", Selected: selected.None()}}
	for _, field := range SortableFields {
		for _, dir := range []Direction{Asc, Desc} {
			spec := SortSpec{Field: field, Direction: dir}
			suffix := " (A-Z)"
			if dir == Desc {
				suffix = " (Z-A)"
			}
			opts = append(opts, option{Value: spec.String(), Label: fieldLabels[field] + suffix, Selected: spec == selected})
		}
	}
	return opts
}

func patchedFields(p Patch) []string {
	var fields []string
	if p.FirstName != nil {
		fields = append(fields, string(FieldFirstName))
	}
	if p.LastName != nil {
		fields = append(fields, string(FieldLastName))
	}
	if p.Email != nil {
		fields = append(fields, string(FieldEmail))
	}
	return fields
}
