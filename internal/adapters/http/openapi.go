package httpadapter

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

//go:embed openapi.yaml
var openAPIDocument []byte

func loadOpenAPIRouter() (routers.Router, error) {
	doc, err := openapi3.NewLoader().LoadFromData(openAPIDocument)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}
	return router, nil
}

// requestValidationMiddleware rejects requests that do not match the embedded
// OpenAPI document. Paths the document does not describe pass through.
// Multipart bodies are left to the handler, which enforces the upload cap.
func requestValidationMiddleware(router routers.Router) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, err := router.FindRoute(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			options := &openapi3filter.Options{
				MultiError:         false,
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
			}
			if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "multipart/form-data" {
				options.ExcludeRequestBody = true
			}

			err = openapi3filter.ValidateRequest(r.Context(), &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options:    options,
			})
			if err != nil {
				var reqErr *openapi3filter.RequestError
				if errors.As(err, &reqErr) {
					slog.WarnContext(r.Context(), "http_request_rejected",
						"request_id", requestIDFromContext(r.Context()),
						"path", r.URL.Path,
						"error", err,
					)
					writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request does not match the API schema"})
					return
				}
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
