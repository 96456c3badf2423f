package cisco

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	"github.com/netops-toolbox/supportwatch/internal/app"
	"github.com/netops-toolbox/supportwatch/internal/cache"
	"github.com/netops-toolbox/supportwatch/internal/metrics"
)

const (
	pkgName = "internal/cisco"

	// the bulk coverage endpoint accepts at most this many serial numbers.
	maxBulkSerials = 75

	// the name-based bug lookup is limited to defects modified within
	// this many days.
	bugModifiedWithinDays = 5

	endpointProductInfo     = "productInfo"
	endpointEOXBySerial     = "eoxBySerial"
	endpointEOXByProduct    = "eoxByProduct"
	endpointBugsByProduct   = "bugsByProduct"
	endpointBugsByRelease   = "bugsByProductRelease"
	endpointBugsByName      = "bugsByNameRelease"
	endpointBugsByKeyword   = "bugsByKeyword"
	endpointAdvisories      = "advisories"
	endpointSoftware        = "softwareSuggestions"
	endpointCoverage        = "coverage"
	endpointCoverageSummary = "coverageSummary"
)

// BugFilter holds the optional parameters of the bug lookups. Absent
// filters are omitted from the request rather than sent as empty values.
type BugFilter struct {
	// Severity is a comma-separated list of severities in the 1-6 range.
	Severity string
	// Status is one of O (open), F (fixed), T (terminated).
	Status string
	// PageIndex selects the result page, 1-based.
	PageIndex int
}

func (f *BugFilter) values() url.Values {
	params := url.Values{}

	page := 1
	if f != nil && f.PageIndex > 0 {
		page = f.PageIndex
	}

	params.Set("page_index", strconv.Itoa(page))

	if f != nil && f.Severity != "" {
		params.Set("severity", f.Severity)
	}

	if f != nil && f.Status != "" {
		params.Set("status", f.Status)
	}

	return params
}

// Client executes authenticated GET requests against the vendor support
// API. Every call consults the response cache first and annotates its
// result with the cache provenance; a 401 invalidates the shared token and
// the request is retried exactly once with a fresh one.
type Client struct {
	baseURL    string
	tokens     *TokenCache
	store      cache.Store
	cacheTTL   time.Duration
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(cfg *app.SupportAPIOptions, store cache.Store, logger *logrus.Logger) (*Client, error) {
	if !cfg.CredentialsConfigured() {
		return nil, ErrCredentials
	}

	// init retryable http client
	retryableClient := retryablehttp.NewClient()

	// set retryable HTTP client to be the otel http client to collect telemetry
	retryableClient.HTTPClient = otelhttp.DefaultClient

	// the lookup sequence is deterministic, the only permitted retry is
	// the single re-authentication after a 401.
	retryableClient.RetryMax = 0
	retryableClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	// disable default debug logging on the retryable client
	if logger.Level < logrus.DebugLevel {
		retryableClient.Logger = nil
	} else {
		retryableClient.Logger = logger
	}

	httpClient := retryableClient.StandardClient()
	httpClient.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		tokens:     NewTokenCache(cfg.ClientID, cfg.ClientSecret, cfg.TokenURL, store, httpClient, logger),
		store:      store,
		cacheTTL:   time.Duration(cfg.CacheTimeoutSeconds) * time.Second,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// ProductBySerial returns product identity attributes for a serial number.
//
// GET /product/v1/information/serial_numbers/{serial}
func (c *Client) ProductBySerial(ctx context.Context, serial string) (*ProductInfoResponse, error) {
	out := &ProductInfoResponse{}

	fromCache, err := c.getJSON(
		ctx,
		endpointProductInfo,
		cacheKey("product", serial),
		"/product/v1/information/serial_numbers/"+url.PathEscape(serial),
		nil,
		out,
	)
	if err != nil {
		return nil, err
	}

	out.FromCache = fromCache

	return out, nil
}

// EOXBySerial returns end-of-life milestones for a serial number.
//
// GET /supporttools/eox/rest/5/EOXBySerialNumber/1/{serial}
func (c *Client) EOXBySerial(ctx context.Context, serial string) (*EOXResponse, error) {
	out := &EOXResponse{}

	fromCache, err := c.getJSON(
		ctx,
		endpointEOXBySerial,
		cacheKey("eox", serial),
		"/supporttools/eox/rest/5/EOXBySerialNumber/1/"+url.PathEscape(serial),
		nil,
		out,
	)
	if err != nil {
		return nil, err
	}

	out.FromCache = fromCache

	return out, nil
}

// EOXByProduct returns end-of-life milestones for a product id.
//
// GET /supporttools/eox/rest/5/EOXByProductID/1/{productID}
func (c *Client) EOXByProduct(ctx context.Context, productID string) (*EOXResponse, error) {
	out := &EOXResponse{}

	fromCache, err := c.getJSON(
		ctx,
		endpointEOXByProduct,
		cacheKey("eox_pid", productID),
		"/supporttools/eox/rest/5/EOXByProductID/1/"+url.PathEscape(productID),
		nil,
		out,
	)
	if err != nil {
		return nil, err
	}

	out.FromCache = fromCache

	return out, nil
}

// BugsByProduct returns known defects for a product id.
//
// GET /bug/v2.0/bugs/products/product_id/{productID}
func (c *Client) BugsByProduct(ctx context.Context, productID string, filter *BugFilter) (*BugsResponse, error) {
	params := filter.values()
	out := &BugsResponse{}

	fromCache, err := c.getJSON(
		ctx,
		endpointBugsByProduct,
		cacheKey("bugs", productID, params.Encode()),
		"/bug/v2.0/bugs/products/product_id/"+url.PathEscape(productID),
		params,
		out,
	)
	if err != nil {
		return nil, err
	}

	out.FromCache = fromCache

	return out, nil
}

// BugsByProductAndRelease returns known defects for a product id on a
// specific software release.
//
// GET /bug/v2.0/bugs/products/product_id/{productID}/software_releases/{release}
func (c *Client) BugsByProductAndRelease(ctx context.Context, productID, release string, filter *BugFilter) (*BugsResponse, error) {
	params := filter.values()
	out := &BugsResponse{}

	fromCache, err := c.getJSON(
		ctx,
		endpointBugsByRelease,
		cacheKey("bugs_ver", productID, release, params.Encode()),
		"/bug/v2.0/bugs/products/product_id/"+url.PathEscape(productID)+"/software_releases/"+url.PathEscape(release),
		params,
		out,
	)
	if err != nil {
		return nil, err
	}

	out.FromCache = fromCache

	return out, nil
}

// BugsByNameAndRelease returns known defects for a full product series name
// on an affected release, limited to defects modified recently.
//
// GET /bug/v2.0/bugs/product_name/{productName}/affected_releases/{release}
func (c *Client) BugsByNameAndRelease(ctx context.Context, productName, release string, filter *BugFilter) (*BugsResponse, error) {
	params := url.Values{}
	params.Set("modified_date", strconv.Itoa(bugModifiedWithinDays))

	if filter != nil && filter.Severity != "" {
		params.Set("severity", filter.Severity)
	}

	out := &BugsResponse{}

	fromCache, err := c.getJSON(
		ctx,
		endpointBugsByName,
		cacheKey("bugs_name", productName, release, params.Encode()),
		"/bug/v2.0/bugs/product_name/"+url.PathEscape(productName)+"/affected_releases/"+url.PathEscape(release),
		params,
		out,
	)
	if err != nil {
		return nil, err
	}

	out.FromCache = fromCache

	return out, nil
}

// BugsByKeyword returns known defects matching a keyword search.
//
// GET /bug/v2.0/bugs/keyword/{keyword}
func (c *Client) BugsByKeyword(ctx context.Context, keyword string, filter *BugFilter) (*BugsResponse, error) {
	params := filter.values()
	out := &BugsResponse{}

	fromCache, err := c.getJSON(
		ctx,
		endpointBugsByKeyword,
		cacheKey("bugs_kw", keyword, params.Encode()),
		"/bug/v2.0/bugs/keyword/"+url.PathEscape(keyword),
		params,
		out,
	)
	if err != nil {
		return nil, err
	}

	out.FromCache = fromCache

	return out, nil
}

// AdvisoriesByProduct returns published security advisories for a product id.
//
// GET /security/advisories/v2/product?product={productID}
func (c *Client) AdvisoriesByProduct(ctx context.Context, productID string) (*AdvisoriesResponse, error) {
	params := url.Values{}
	params.Set("product", productID)

	out := &AdvisoriesResponse{}

	fromCache, err := c.getJSON(
		ctx,
		endpointAdvisories,
		cacheKey("psirt", productID),
		"/security/advisories/v2/product",
		params,
		out,
	)
	if err != nil {
		return nil, err
	}

	out.FromCache = fromCache

	return out, nil
}

// SoftwareSuggestions returns recommended software releases for a product id.
//
// GET /software/suggestion/v2/suggestions/software/productIds/{productID}
func (c *Client) SoftwareSuggestions(ctx context.Context, productID string) (*SoftwareSuggestionsResponse, error) {
	out := &SoftwareSuggestionsResponse{}

	fromCache, err := c.getJSON(
		ctx,
		endpointSoftware,
		cacheKey("software", productID),
		"/software/suggestion/v2/suggestions/software/productIds/"+url.PathEscape(productID),
		nil,
		out,
	)
	if err != nil {
		return nil, err
	}

	out.FromCache = fromCache

	return out, nil
}

// CoverageBySerial returns the contract coverage status of a serial number.
//
// GET /sn2info/v2/coverage/status/serial_numbers/{serial}
func (c *Client) CoverageBySerial(ctx context.Context, serial string) (*CoverageResponse, error) {
	out := &CoverageResponse{}

	fromCache, err := c.getJSON(
		ctx,
		endpointCoverage,
		cacheKey("coverage", serial),
		"/sn2info/v2/coverage/status/serial_numbers/"+url.PathEscape(serial),
		nil,
		out,
	)
	if err != nil {
		return nil, err
	}

	out.FromCache = fromCache

	return out, nil
}

// CoverageSummary returns the coverage summary of up to 75 serial numbers,
// truncating longer input. An empty list is rejected without a call.
//
// GET /sn2info/v2/coverage/summary/serial_numbers/{sr_no,...}
func (c *Client) CoverageSummary(ctx context.Context, serials []string) (*CoverageResponse, error) {
	if len(serials) == 0 {
		return nil, ErrNoSerials
	}

	if len(serials) > maxBulkSerials {
		serials = serials[:maxBulkSerials]
	}

	escaped := make([]string, 0, len(serials))
	for _, serial := range serials {
		escaped = append(escaped, url.PathEscape(serial))
	}

	joined := strings.Join(escaped, ",")
	out := &CoverageResponse{}

	fromCache, err := c.getJSON(
		ctx,
		endpointCoverageSummary,
		cacheKey("coverage_bulk", strings.Join(serials, ",")),
		"/sn2info/v2/coverage/summary/serial_numbers/"+joined,
		nil,
		out,
	)
	if err != nil {
		return nil, err
	}

	out.FromCache = fromCache

	return out, nil
}

// TestConnection verifies API connectivity by performing a token exchange.
func (c *Client) TestConnection(ctx context.Context) ConnectionStatus {
	ctx, span := otel.Tracer(pkgName).Start(ctx, "Client.TestConnection")
	defer span.End()

	if _, err := c.tokens.Token(ctx); err != nil {
		return ConnectionStatus{
			Success: false,
			Message: "Failed to authenticate with the support API",
		}
	}

	return ConnectionStatus{
		Success: true,
		Message: "Successfully connected to the support API",
	}
}

// cacheKey derives the deterministic cache key of a request shape.
func cacheKey(parts ...string) string {
	return "cisco:" + strings.Join(parts, ":")
}

// getJSON returns the cached response body decoded into out when present,
// otherwise issues the request, caches the body and decodes it. The bool
// result reports whether the cache served the response.
func (c *Client) getJSON(ctx context.Context, endpoint, key, path string, params url.Values, out interface{}) (bool, error) {
	if cached, found := c.store.Get(ctx, key); found {
		if err := json.Unmarshal(cached, out); err == nil {
			metrics.CacheHitCount.With(prometheus.Labels{"endpoint": endpoint}).Inc()

			return true, nil
		}

		// an undecodable entry is treated as a miss
		if err := c.store.Delete(ctx, key); err != nil {
			c.logger.WithError(err).Warn("stale cache entry not removed")
		}
	}

	body, err := c.do(ctx, endpoint, path, params)
	if err != nil {
		metrics.APIRequestErrorCount.With(
			prometheus.Labels{"endpoint": endpoint, "kind": errorKind(err)},
		).Inc()

		return false, err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return false, errors.Wrap(ErrUpstream, "malformed response body: "+err.Error())
	}

	if err := c.store.Set(ctx, key, body, c.cacheTTL); err != nil {
		c.logger.WithError(err).Warn("response not stored in cache")
	}

	return false, nil
}

// do issues the authenticated GET, re-authenticating and retrying exactly
// once when the first attempt is rejected with a 401.
func (c *Client) do(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	ctx, span := otel.Tracer(pkgName).Start(ctx, "Client."+endpoint)
	defer span.End()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	metrics.APIRequestCount.With(prometheus.Labels{"endpoint": endpoint}).Inc()

	status, body, err := c.issue(ctx, path, params, token)
	if err != nil {
		return nil, errors.Wrap(ErrTransport, err.Error())
	}

	if status == http.StatusUnauthorized {
		c.tokens.Invalidate(ctx)

		token, err = c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}

		status, body, err = c.issue(ctx, path, params, token)
		if err != nil {
			return nil, errors.Wrap(ErrTransport, err.Error())
		}
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		c.logger.WithFields(logrus.Fields{
			"endpoint": endpoint,
			"status":   status,
		}).Error("support API request failed")

		return nil, errors.Wrap(ErrUpstream, "status "+strconv.Itoa(status))
	}

	return body, nil
}

func (c *Client) issue(ctx context.Context, path string, params url.Values, token string) (int, []byte, error) {
	requestURL := c.baseURL + path
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, http.NoBody)
	if err != nil {
		return 0, nil, err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}

	return resp.StatusCode, body, nil
}
