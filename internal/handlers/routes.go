package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/guardpost/apiserver/internal/auth"
	"github.com/guardpost/apiserver/internal/services"
	"github.com/guardpost/apiserver/types"
)

// Route binds a handler to a method, a pattern and the capability a caller
// needs to reach it.
type Route struct {
	Method     string
	Pattern    string
	Capability auth.Capability
	Handler    http.HandlerFunc
}

// Services are the use-cases the API is built on.
type Services struct {
	Users        UserManager
	Clients      *services.ClientService
	Properties   *services.PropertyService
	Incidents    *services.IncidentService
	Patrols      *services.PatrolService
	Appointments *services.AppointmentService
	Financials   *services.FinancialService
	Activities   ActivityLister
	Files        FileManager
	Resources    *services.CommunityResourceService
	Laws         *services.LawService
	Summarizer   Summarizer
}

// API holds every HTTP handler.
type API struct {
	Auth         *AuthHandler
	Users        *UserHandler
	Clients      *ResourceHandler[types.Client, types.ClientFilter]
	Properties   *ResourceHandler[types.Property, types.PropertyFilter]
	Incidents    *ResourceHandler[types.Incident, types.IncidentFilter]
	Patrols      *ResourceHandler[types.PatrolReport, types.PatrolFilter]
	Appointments *ResourceHandler[types.Appointment, types.AppointmentFilter]
	Financials   *FinancialHandler
	Activities   *ActivityHandler
	Files        *FileHandler
	Resources    *ResourceHandler[types.CommunityResource, types.ReferenceFilter]
	Laws         *ResourceHandler[types.LawReference, types.ReferenceFilter]
	Summaries    *SummaryHandler
}

// NewAPI builds the handlers for svc. The auth handler is supplied by the
// caller because it depends on the session machinery.
func NewAPI(authHandler *AuthHandler, svc Services, maxUploadBytes int64) *API {
	return &API{
		Auth:         authHandler,
		Users:        NewUserHandler(svc.Users),
		Clients:      NewResourceHandler[types.Client, types.ClientFilter](svc.Clients, "client", clientFilter),
		Properties:   NewResourceHandler[types.Property, types.PropertyFilter](svc.Properties, "property", propertyFilter),
		Incidents:    NewResourceHandler[types.Incident, types.IncidentFilter](svc.Incidents, "incident", incidentFilter),
		Patrols:      NewResourceHandler[types.PatrolReport, types.PatrolFilter](svc.Patrols, "patrol report", patrolFilter),
		Appointments: NewResourceHandler[types.Appointment, types.AppointmentFilter](svc.Appointments, "appointment", appointmentFilter),
		Financials:   NewFinancialHandler(svc.Financials),
		Activities:   NewActivityHandler(svc.Activities),
		Files:        NewFileHandler(svc.Files, maxUploadBytes),
		Resources:    NewResourceHandler[types.CommunityResource, types.ReferenceFilter](svc.Resources, "community resource", referenceFilter),
		Laws:         NewResourceHandler[types.LawReference, types.ReferenceFilter](svc.Laws, "law reference", referenceFilter),
		Summaries:    NewSummaryHandler(svc.Summarizer),
	}
}

// PublicRoutes are reachable without a session.
func (a *API) PublicRoutes() []Route {
	return []Route{
		{Method: http.MethodPost, Pattern: "/auth/login", Handler: a.Auth.Login},
		{Method: http.MethodGet, Pattern: "/auth/status", Handler: a.Auth.Status},
		{Method: http.MethodPost, Pattern: "/auth/logout", Handler: a.Auth.Logout},
		{Method: http.MethodGet, Pattern: "/files/shared/{token}", Handler: a.Files.Shared},
	}
}

// Routes are the guarded routes with their capabilities.
func (a *API) Routes() []Route {
	routes := []Route{
		{Method: http.MethodGet, Pattern: "/auth/me", Capability: auth.CapAuthenticated, Handler: a.Auth.Me},
		{Method: http.MethodPost, Pattern: "/auth/password", Capability: auth.CapAuthenticated, Handler: a.Auth.ChangePassword},

		{Method: http.MethodGet, Pattern: "/users", Capability: auth.CapUsersRead, Handler: a.Users.List},
		{Method: http.MethodPost, Pattern: "/users", Capability: auth.CapUsersManage, Handler: a.Users.Create},
		{Method: http.MethodGet, Pattern: "/users/{id}", Capability: auth.CapUsersRead, Handler: a.Users.Get},
		{Method: http.MethodPut, Pattern: "/users/{id}", Capability: auth.CapUsersManage, Handler: a.Users.Update},
		{Method: http.MethodDelete, Pattern: "/users/{id}", Capability: auth.CapUsersManage, Handler: a.Users.Deactivate},

		{Method: http.MethodGet, Pattern: "/activities", Capability: auth.CapActivitiesRead, Handler: a.Activities.List},
		{Method: http.MethodGet, Pattern: "/financials/totals", Capability: auth.CapFinancialsRead, Handler: a.Financials.Totals},

		{Method: http.MethodGet, Pattern: "/files", Capability: auth.CapFilesRead, Handler: a.Files.List},
		{Method: http.MethodPost, Pattern: "/files", Capability: auth.CapFilesWrite, Handler: a.Files.Upload},
		{Method: http.MethodGet, Pattern: "/files/{id}", Capability: auth.CapFilesRead, Handler: a.Files.Get},
		{Method: http.MethodGet, Pattern: "/files/{id}/content", Capability: auth.CapFilesRead, Handler: a.Files.Content},
		{Method: http.MethodPost, Pattern: "/files/{id}/link", Capability: auth.CapFilesRead, Handler: a.Files.Link},
		{Method: http.MethodDelete, Pattern: "/files/{id}", Capability: auth.CapFilesWrite, Handler: a.Files.Delete},

		{Method: http.MethodPost, Pattern: "/ai/incident-summary", Capability: auth.CapSummariesUse, Handler: a.Summaries.Incident},
		{Method: http.MethodPost, Pattern: "/ai/patrol-summary", Capability: auth.CapSummariesUse, Handler: a.Summaries.Patrol},
	}
	routes = append(routes, a.Clients.Routes("/clients", auth.CapClientsRead, auth.CapClientsWrite)...)
	routes = append(routes, a.Properties.Routes("/properties", auth.CapPropertiesRead, auth.CapPropertiesWrite)...)
	routes = append(routes, a.Incidents.Routes("/incidents", auth.CapIncidentsRead, auth.CapIncidentsWrite)...)
	routes = append(routes, a.Patrols.Routes("/patrols", auth.CapPatrolsRead, auth.CapPatrolsWrite)...)
	routes = append(routes, a.Appointments.Routes("/appointments", auth.CapAppointmentsRead, auth.CapAppointmentsWrite)...)
	routes = append(routes, a.Financials.Routes("/financials", auth.CapFinancialsRead, auth.CapFinancialsWrite)...)
	routes = append(routes, a.Resources.Routes("/resources", auth.CapReferencesRead, auth.CapReferencesWrite)...)
	routes = append(routes, a.Laws.Routes("/laws", auth.CapReferencesRead, auth.CapReferencesWrite)...)
	return routes
}

// Mount registers the public routes on r and every guarded route inside a
// group that authenticates first and then checks the route's capability.
func (a *API) Mount(r chi.Router, guard *auth.Guard) {
	for _, route := range a.PublicRoutes() {
		r.Method(route.Method, route.Pattern, route.Handler)
	}

	r.Group(func(r chi.Router) {
		r.Use(guard.Authenticate)
		for _, route := range a.Routes() {
			r.With(guard.Require(route.Capability)).Method(route.Method, route.Pattern, route.Handler)
		}
	})
}
