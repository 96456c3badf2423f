// Package support assembles the aggregate support record of a device by
// orchestrating the per-category vendor API lookups, reconciling partial
// failures and applying the fallback chains when a primary lookup fails.
package support

import (
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/netops-toolbox/supportwatch/internal/cisco"
	"github.com/netops-toolbox/supportwatch/internal/device"
	"github.com/netops-toolbox/supportwatch/internal/metrics"
)

const (
	pkgName = "internal/support"

	// caps applied to the assembled record.
	maxBugs       = 5
	maxAdvisories = 10

	msgCredentialsNotConfigured = "support API credentials not configured"
)

var (
	ErrPattern = errors.New("manufacturer pattern error")
)

// severities kept by the client-side bug filter.
var highSeverities = map[cisco.Severity]struct{}{
	"1": {},
	"2": {},
	"3": {},
}

// Aggregator runs the lookup sequence for one device at a time. Each of
// the up-to-nine dependent calls runs strictly sequentially so the
// fallback chains stay deterministic; a step failure never aborts its
// sibling steps. Concurrent lookups for different devices are independent.
type Aggregator struct {
	// client is nil when credentials are not configured, in which case
	// lookups report the condition without attempting any call.
	client *cisco.Client

	manufacturerPattern *regexp.Regexp
	logger              *logrus.Logger
}

func NewAggregator(client *cisco.Client, manufacturerPattern string, logger *logrus.Logger) (*Aggregator, error) {
	pattern, err := regexp.Compile("(?i)" + manufacturerPattern)
	if err != nil {
		return nil, errors.Wrap(ErrPattern, err.Error())
	}

	return &Aggregator{
		client:              client,
		manufacturerPattern: pattern,
		logger:              logger,
	}, nil
}

// ShouldShow reports whether a device qualifies for a support lookup: it
// must carry a serial number and a manufacturer matching the configured
// pattern.
func (a *Aggregator) ShouldShow(d *device.Device) bool {
	if d.Serial == "" || d.Manufacturer == "" {
		return false
	}

	return a.manufacturerPattern.MatchString(d.Manufacturer)
}

// TestConnection reports support API connectivity.
func (a *Aggregator) TestConnection(ctx context.Context) cisco.ConnectionStatus {
	if a.client == nil {
		return cisco.ConnectionStatus{
			Success: false,
			Message: msgCredentialsNotConfigured,
		}
	}

	return a.client.TestConnection(ctx)
}

// Lookup assembles the aggregate support record of a device. The returned
// record always carries whatever subset of data succeeded; only the gate
// checks short-circuit the sequence.
func (a *Aggregator) Lookup(ctx context.Context, d *device.Device) *Record {
	ctx, span := otel.Tracer(pkgName).Start(ctx, "Aggregator.Lookup")
	defer span.End()

	started := time.Now()

	record := a.lookup(ctx, d)

	state := "completed"

	switch {
	case !record.Show:
		state = "skipped"
	case record.Error != "":
		state = "error"
	}

	metrics.LookupCount.With(prometheus.Labels{"state": state}).Inc()
	metrics.LookupRunTimeSummary.With(prometheus.Labels{"state": state}).Observe(time.Since(started).Seconds())

	return record
}

// nolint:gocyclo // the lookup sequence is a fixed chain of independent steps.
func (a *Aggregator) lookup(ctx context.Context, d *device.Device) *Record {
	if !a.ShouldShow(d) {
		return &Record{Show: false}
	}

	if a.client == nil {
		a.logger.Warn(msgCredentialsNotConfigured)

		return &Record{Show: true, Error: msgCredentialsNotConfigured}
	}

	identity := device.Resolve(d)

	record := &Record{
		Show:            true,
		SerialNumber:    identity.PrimarySerial,
		SoftwareVersion: identity.SoftwareVersion,
		ProductNameHint: identity.ProductNameHint,
	}

	fields := logrus.Fields{"serial": identity.PrimarySerial}

	// product identity, the source of the product id used downstream
	productID := a.productStep(ctx, identity, record)

	// the bug lookups fall back to the device-type model when no product
	// id was resolved
	bugPID := productID
	if bugPID == "" {
		bugPID = identity.Model
	}

	record.ProductID = productID

	a.eoxStep(ctx, identity, record)
	a.generalBugsStep(ctx, identity, bugPID, record)
	a.versionBugsStep(ctx, identity, bugPID, record)

	// these require a resolved product id
	if productID != "" {
		a.advisoriesStep(ctx, productID, record)
		a.softwareStep(ctx, productID, record)
	}

	a.coverageStep(ctx, identity, record)
	a.stackCoverageStep(ctx, identity, record)

	if record.Error != "" {
		a.logger.WithFields(fields).WithField("error", record.Error).Warn("support lookup completed with top-level error")
	} else {
		a.logger.WithFields(fields).Debug("support lookup completed")
	}

	return record
}

// productStep resolves product identity by serial. A failure here lands on
// the record's top-level error and leaves the product id unresolved;
// serial-only and model-keyed steps still run.
func (a *Aggregator) productStep(ctx context.Context, identity device.Identity, record *Record) string {
	resp, err := a.client.ProductBySerial(ctx, identity.PrimarySerial)
	if err != nil {
		record.Error = err.Error()

		return ""
	}

	if len(resp.ProductList) == 0 {
		return ""
	}

	product := resp.ProductList[0]
	record.Product = &ProductResult{
		Product:   product,
		FromCache: resp.FromCache,
	}

	return product.PID()
}

func (a *Aggregator) eoxStep(ctx context.Context, identity device.Identity, record *Record) {
	resp, err := a.client.EOXBySerial(ctx, identity.PrimarySerial)
	if err != nil {
		record.EOX = &EOXResult{Error: err.Error()}

		return
	}

	if len(resp.EOXRecord) == 0 {
		return
	}

	record.EOX = &EOXResult{
		Record:    &resp.EOXRecord[0],
		FromCache: resp.FromCache,
	}
}

// generalBugsStep searches defects by the device-type model keyword first
// and falls back to the product-id endpoint when the keyword search fails.
func (a *Aggregator) generalBugsStep(ctx context.Context, identity device.Identity, bugPID string, record *Record) {
	var resp *cisco.BugsResponse

	var err error

	attempted := false

	if identity.Model != "" {
		attempted = true
		resp, err = a.client.BugsByKeyword(ctx, identity.Model, nil)
	}

	if (!attempted || err != nil) && bugPID != "" {
		attempted = true
		resp, err = a.client.BugsByProduct(ctx, bugPID, nil)
	}

	if !attempted {
		return
	}

	if err != nil {
		record.Bugs = &BugsResult{Error: err.Error()}

		return
	}

	record.Bugs = &BugsResult{
		Bugs:      filterHighSeverity(resp.Bugs),
		FromCache: resp.FromCache,
	}
}

// versionBugsStep searches defects affecting the resolved software
// version, preferring the name-based endpoint when a series name hint is
// present and falling back to the product-id endpoint.
func (a *Aggregator) versionBugsStep(ctx context.Context, identity device.Identity, bugPID string, record *Record) {
	if identity.SoftwareVersion == "" {
		return
	}

	var resp *cisco.BugsResponse

	var err error

	attempted := false

	if identity.ProductNameHint != "" {
		attempted = true
		resp, err = a.client.BugsByNameAndRelease(ctx, identity.ProductNameHint, identity.SoftwareVersion, nil)
	}

	if (!attempted || err != nil) && bugPID != "" {
		attempted = true
		resp, err = a.client.BugsByProductAndRelease(ctx, bugPID, identity.SoftwareVersion, nil)
	}

	if !attempted {
		return
	}

	if err != nil {
		record.VersionBugs = &VersionBugsResult{
			Version: identity.SoftwareVersion,
			Error:   err.Error(),
		}

		return
	}

	record.VersionBugs = &VersionBugsResult{
		Bugs:      filterHighSeverity(resp.Bugs),
		Version:   identity.SoftwareVersion,
		FromCache: resp.FromCache,
	}
}

func (a *Aggregator) advisoriesStep(ctx context.Context, productID string, record *Record) {
	resp, err := a.client.AdvisoriesByProduct(ctx, productID)
	if err != nil {
		record.Advisories = &AdvisoriesResult{Error: err.Error()}

		return
	}

	advisories := resp.Advisories
	if len(advisories) > maxAdvisories {
		advisories = advisories[:maxAdvisories]
	}

	record.Advisories = &AdvisoriesResult{
		Advisories: advisories,
		Total:      len(resp.Advisories),
		FromCache:  resp.FromCache,
	}
}

func (a *Aggregator) softwareStep(ctx context.Context, productID string, record *Record) {
	resp, err := a.client.SoftwareSuggestions(ctx, productID)
	if err != nil {
		record.Software = &SoftwareResult{Error: err.Error()}

		return
	}

	record.Software = &SoftwareResult{
		ProductList: resp.ProductList,
		FromCache:   resp.FromCache,
	}
}

func (a *Aggregator) coverageStep(ctx context.Context, identity device.Identity, record *Record) {
	resp, err := a.client.CoverageBySerial(ctx, identity.PrimarySerial)
	if err != nil {
		record.Coverage = &CoverageResult{Error: err.Error()}

		return
	}

	if len(resp.SerialNumbers) == 0 {
		return
	}

	record.Coverage = &CoverageResult{
		Status:    &resp.SerialNumbers[0],
		FromCache: resp.FromCache,
	}
}

// stackCoverageStep summarizes contract coverage across the stack. The
// bulk call is keyed by the primary serial followed by the stack members
// with the primary removed from the member list to avoid duplication.
func (a *Aggregator) stackCoverageStep(ctx context.Context, identity device.Identity, record *Record) {
	if len(identity.StackSerials) == 0 {
		return
	}

	serials := []string{identity.PrimarySerial}

	for _, serial := range identity.StackSerials {
		if serial != identity.PrimarySerial {
			serials = append(serials, serial)
		}
	}

	resp, err := a.client.CoverageSummary(ctx, serials)
	if err != nil {
		record.StackCoverage = &StackCoverageResult{Error: err.Error()}

		return
	}

	if len(resp.SerialNumbers) == 0 {
		return
	}

	covered := 0

	for _, member := range resp.SerialNumbers {
		if member.IsCovered == "YES" {
			covered++
		}
	}

	record.StackCoverage = &StackCoverageResult{
		Members:    resp.SerialNumbers,
		Total:      len(resp.SerialNumbers),
		Covered:    covered,
		NotCovered: len(resp.SerialNumbers) - covered,
		FromCache:  resp.FromCache,
	}
}

// filterHighSeverity keeps severity 1-3 entries in their original order,
// falling back to the first entries unfiltered when none qualify. The
// result is capped either way.
func filterHighSeverity(bugs []cisco.Bug) []cisco.Bug {
	var high []cisco.Bug

	for _, bug := range bugs {
		if _, ok := highSeverities[bug.Severity]; ok {
			high = append(high, bug)

			if len(high) == maxBugs {
				break
			}
		}
	}

	if len(high) > 0 {
		return high
	}

	if len(bugs) > maxBugs {
		bugs = bugs[:maxBugs]
	}

	return bugs
}
