package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopmigrate/backend/internal/domain/migration"
	"go.uber.org/zap"
)

// GatewayNameHTTP identifies the HTTP api gateway, matched against
// Connection.GatewayName
const GatewayNameHTTP = "http"

// maxResponseSize is the maximum allowed response size from the source api (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Credential keys the HTTP gateway reads from a connection
const (
	CredentialEndpoint = "endpoint"
	CredentialAPIKey   = "api_key"
)

// ErrMissingEndpoint indicates a connection without an endpoint credential
var ErrMissingEndpoint = errors.New("gateway: connection has no endpoint credential")

// HTTPGateway reads raw entity pages from a source system's migration api
type HTTPGateway struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPGateway creates a new HTTP source gateway
func NewHTTPGateway(timeout time.Duration, logger *zap.Logger) *HTTPGateway {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPGateway{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Name returns the gateway identifier
func (g *HTTPGateway) Name() string {
	return GatewayNameHTTP
}

// Supports reports whether this gateway serves the connection
func (g *HTTPGateway) Supports(connection *migration.Connection) bool {
	return connection != nil && connection.GatewayName == GatewayNameHTTP
}

// Read fetches one page of raw rows for the context's entity type
func (g *HTTPGateway) Read(ctx context.Context, migrationCtx *migration.MigrationContext) ([]map[string]any, error) {
	endpoint, err := g.endpointFor(migrationCtx.Connection, migrationCtx.EntityType)
	if err != nil {
		return nil, err
	}
	query := endpoint.Query()
	query.Set("offset", strconv.Itoa(migrationCtx.Offset))
	query.Set("limit", strconv.Itoa(migrationCtx.Limit))
	endpoint.RawQuery = query.Encode()

	body, err := g.get(ctx, migrationCtx.Connection, endpoint.String())
	if err != nil {
		return nil, err
	}

	var response struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("gateway: invalid response for %s: %w", migrationCtx.EntityType, err)
	}
	g.logger.Debug("read source page",
		zap.String("entity", migrationCtx.EntityType),
		zap.Int("offset", migrationCtx.Offset),
		zap.Int("rows", len(response.Data)))
	return response.Data, nil
}

// ReadTotal fetches the total row count for an entity type
func (g *HTTPGateway) ReadTotal(ctx context.Context, connection *migration.Connection, entityType string) (int64, error) {
	endpoint, err := g.endpointFor(connection, entityType)
	if err != nil {
		return 0, err
	}
	endpoint = endpoint.JoinPath("total")

	body, err := g.get(ctx, connection, endpoint.String())
	if err != nil {
		return 0, err
	}

	var response struct {
		Total int64 `json:"total"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return 0, fmt.Errorf("gateway: invalid total response for %s: %w", entityType, err)
	}
	return response.Total, nil
}

// endpointFor builds the base url for an entity type
func (g *HTTPGateway) endpointFor(connection *migration.Connection, entityType string) (*url.URL, error) {
	base := connection.Credentials[CredentialEndpoint]
	if base == "" {
		return nil, ErrMissingEndpoint
	}
	endpoint, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("gateway: invalid endpoint %q: %w", base, err)
	}
	return endpoint.JoinPath("api", entityType), nil
}

// get executes one authenticated request and returns the body
func (g *HTTPGateway) get(ctx context.Context, connection *migration.Connection, requestURL string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Accept", "application/json")
	if apiKey := connection.Credentials[CredentialAPIKey]; apiKey != "" {
		request.Header.Set("X-Api-Key", apiKey)
	}

	response, err := g.httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway: unexpected status %d from %s", response.StatusCode, requestURL)
	}
	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Ensure HTTPGateway implements Gateway
var _ migration.Gateway = (*HTTPGateway)(nil)
