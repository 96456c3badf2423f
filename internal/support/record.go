package support

import (
	"github.com/netops-toolbox/supportwatch/internal/cisco"
)

// Record is the aggregate support view of one device, assembled per lookup
// from whatever subset of the upstream calls succeeded. It is never
// persisted beyond the cache of its constituent API responses.
//
// nolint:govet // fieldalignment struct is easier to read in the current format
type Record struct {
	// Show reports whether the device qualifies for a support lookup at
	// all. When false no upstream calls were made.
	Show bool `json:"show"`

	// Error carries the top-level gate or product-info failure. Per-step
	// failures land on the step's own result instead.
	Error string `json:"error,omitempty"`

	SerialNumber    string `json:"serial_number,omitempty"`
	ProductID       string `json:"product_id,omitempty"`
	SoftwareVersion string `json:"software_version,omitempty"`
	ProductNameHint string `json:"product_name_hint,omitempty"`

	Product       *ProductResult       `json:"product,omitempty"`
	EOX           *EOXResult           `json:"eox,omitempty"`
	Bugs          *BugsResult          `json:"general_bugs,omitempty"`
	VersionBugs   *VersionBugsResult   `json:"version_bugs,omitempty"`
	Advisories    *AdvisoriesResult    `json:"advisories,omitempty"`
	Software      *SoftwareResult      `json:"software_suggestions,omitempty"`
	Coverage      *CoverageResult      `json:"coverage,omitempty"`
	StackCoverage *StackCoverageResult `json:"stack_coverage,omitempty"`
}

type ProductResult struct {
	Product   cisco.Product `json:"product"`
	FromCache bool          `json:"from_cache"`
}

type EOXResult struct {
	Record    *cisco.EOXRecord `json:"record,omitempty"`
	FromCache bool             `json:"from_cache"`
	Error     string           `json:"error,omitempty"`
}

type BugsResult struct {
	Bugs      []cisco.Bug `json:"bugs,omitempty"`
	FromCache bool        `json:"from_cache"`
	Error     string      `json:"error,omitempty"`
}

type VersionBugsResult struct {
	Bugs      []cisco.Bug `json:"bugs,omitempty"`
	Version   string      `json:"version"`
	FromCache bool        `json:"from_cache"`
	Error     string      `json:"error,omitempty"`
}

type AdvisoriesResult struct {
	Advisories []cisco.Advisory `json:"advisories,omitempty"`
	// Total is the true advisory count before the list was capped.
	Total     int    `json:"total"`
	FromCache bool   `json:"from_cache"`
	Error     string `json:"error,omitempty"`
}

type SoftwareResult struct {
	ProductList []cisco.SoftwareProductSuggestions `json:"product_list,omitempty"`
	FromCache   bool                               `json:"from_cache"`
	Error       string                             `json:"error,omitempty"`
}

type CoverageResult struct {
	Status    *cisco.CoverageStatus `json:"status,omitempty"`
	FromCache bool                  `json:"from_cache"`
	Error     string                `json:"error,omitempty"`
}

type StackCoverageResult struct {
	Members    []cisco.CoverageStatus `json:"members,omitempty"`
	Total      int                    `json:"total"`
	Covered    int                    `json:"covered"`
	NotCovered int                    `json:"not_covered"`
	FromCache  bool                   `json:"from_cache"`
	Error      string                 `json:"error,omitempty"`
}
