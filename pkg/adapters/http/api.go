package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// The types and the chi wiring below follow the layout oapi-codegen emits
// for openapi.yaml. Keep operation IDs, paths and parameters in sync with it.

// SessionId defines model for SessionId.
type SessionId = string

// OpenSessionRequest defines model for OpenSessionRequest.
type OpenSessionRequest struct {
	FormId string  `json:"form_id"`
	Locale *string `json:"locale,omitempty"`
}

// EventRequest defines model for EventRequest.
type EventRequest struct {
	FieldId string  `json:"field_id"`
	Value   *string `json:"value,omitempty"`
}

// FormList defines model for FormList.
type FormList struct {
	Forms []string `json:"forms"`
}

// OpenSessionJSONRequestBody defines body for OpenSession for application/json ContentType.
type OpenSessionJSONRequestBody = OpenSessionRequest

// SubmitEventJSONRequestBody defines body for SubmitEvent for application/json ContentType.
type SubmitEventJSONRequestBody = EventRequest

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (GET /forms)
	ListForms(w http.ResponseWriter, r *http.Request)
	// (GET /health)
	GetHealth(w http.ResponseWriter, r *http.Request)
	// (GET /info)
	GetInfo(w http.ResponseWriter, r *http.Request)
	// (POST /sessions)
	OpenSession(w http.ResponseWriter, r *http.Request)
	// (DELETE /sessions/{sessionId})
	CloseSession(w http.ResponseWriter, r *http.Request, sessionId SessionId)
	// (POST /sessions/{sessionId}/events)
	SubmitEvent(w http.ResponseWriter, r *http.Request, sessionId SessionId)
	// (GET /sessions/{sessionId}/stream)
	StreamSession(w http.ResponseWriter, r *http.Request, sessionId SessionId)
}

// MiddlewareFunc wraps one operation handler.
type MiddlewareFunc func(http.Handler) http.Handler

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

// ListForms operation middleware
func (siw *ServerInterfaceWrapper) ListForms(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.ListForms))
}

// GetHealth operation middleware
func (siw *ServerInterfaceWrapper) GetHealth(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.GetHealth))
}

// GetInfo operation middleware
func (siw *ServerInterfaceWrapper) GetInfo(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.GetInfo))
}

// OpenSession operation middleware
func (siw *ServerInterfaceWrapper) OpenSession(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.OpenSession))
}

// CloseSession operation middleware
func (siw *ServerInterfaceWrapper) CloseSession(w http.ResponseWriter, r *http.Request) {
	sessionId, ok := siw.sessionID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.CloseSession(w, r, sessionId)
	}))
}

// SubmitEvent operation middleware
func (siw *ServerInterfaceWrapper) SubmitEvent(w http.ResponseWriter, r *http.Request) {
	sessionId, ok := siw.sessionID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.SubmitEvent(w, r, sessionId)
	}))
}

// StreamSession operation middleware
func (siw *ServerInterfaceWrapper) StreamSession(w http.ResponseWriter, r *http.Request) {
	sessionId, ok := siw.sessionID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.StreamSession(w, r, sessionId)
	}))
}

// sessionID binds the "sessionId" path parameter. Percent-encoded IDs are
// decoded; a malformed escape is reported to ErrorHandlerFunc.
func (siw *ServerInterfaceWrapper) sessionID(w http.ResponseWriter, r *http.Request) (SessionId, bool) {
	var sessionId SessionId
	err := runtime.BindStyledParameterWithOptions("simple", "sessionId", chi.URLParam(r, "sessionId"), &sessionId,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "sessionId", Err: err})
		return "", false
	}
	return sessionId, true
}

func (siw *ServerInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, handler http.Handler) {
	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}
	handler.ServeHTTP(w, r)
}

// InvalidParamFormatError reports a parameter that could not be bound.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerWithOptions creates http.Handler with additional options
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter

	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/forms", wrapper.ListForms)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/health", wrapper.GetHealth)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/info", wrapper.GetInfo)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/sessions", wrapper.OpenSession)
	})
	r.Group(func(r chi.Router) {
		r.Delete(options.BaseURL+"/sessions/{sessionId}", wrapper.CloseSession)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/sessions/{sessionId}/events", wrapper.SubmitEvent)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/sessions/{sessionId}/stream", wrapper.StreamSession)
	})

	return r
}
