package cisco

import (
	"encoding/json"
	"strconv"
)

// Severity is a bug severity in the 1 (most severe) to 6 range. The
// upstream API returns it as a string in some endpoints and a number in
// others, decoding normalizes both to the string form.
type Severity string

func (s *Severity) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*s = Severity(asString)
		return nil
	}

	var asNumber int
	if err := json.Unmarshal(data, &asNumber); err != nil {
		return err
	}

	*s = Severity(strconv.Itoa(asNumber))

	return nil
}

// Product holds the identity attributes returned for a serial number.
type Product struct {
	SrNo            string `json:"sr_no"`
	BasePID         string `json:"base_pid"`
	OrderablePID    string `json:"orderable_pid"`
	ProductName     string `json:"product_name"`
	ProductSeries   string `json:"product_series"`
	ProductCategory string `json:"product_category"`
	ReleaseDate     string `json:"release_date"`
}

// PID returns the product identifier, preferring the base PID over the
// orderable one.
func (p *Product) PID() string {
	if p.BasePID != "" {
		return p.BasePID
	}

	return p.OrderablePID
}

type ProductInfoResponse struct {
	ProductList []Product `json:"product_list"`

	FromCache bool `json:"-"`
}

// EOXDate is a milestone date as returned by the EoX endpoints.
type EOXDate struct {
	Value      string `json:"value"`
	DateFormat string `json:"dateFormat"`
}

// EOXRecord holds the end-of-life milestones of a product.
type EOXRecord struct {
	EOLProductID                 string  `json:"EOLProductID"`
	ProductIDDescription         string  `json:"ProductIDDescription"`
	EOXExternalAnnouncementDate  EOXDate `json:"EOXExternalAnnouncementDate"`
	EndOfSaleDate                EOXDate `json:"EndOfSaleDate"`
	EndOfSWMaintenanceReleases   EOXDate `json:"EndOfSWMaintenanceReleases"`
	EndOfSecurityVulSupportDate  EOXDate `json:"EndOfSecurityVulSupportDate"`
	EndOfRoutineFailureAnalysis  EOXDate `json:"EndOfRoutineFailureAnalysisDate"`
	EndOfServiceContractRenewal  EOXDate `json:"EndOfServiceContractRenewal"`
	LastDateOfSupport            EOXDate `json:"LastDateOfSupport"`
	LinkToProductBulletinURL     string  `json:"LinkToProductBulletinURL"`
	EOXMigrationDetails          any     `json:"EOXMigrationDetails,omitempty"`
	EOXInputType                 string  `json:"EOXInputType"`
	EOXInputValue                string  `json:"EOXInputValue"`
}

type EOXResponse struct {
	EOXRecord []EOXRecord `json:"EOXRecord"`

	FromCache bool `json:"-"`
}

// Bug is a known defect record.
type Bug struct {
	BugID                 string   `json:"bug_id"`
	Headline              string   `json:"headline"`
	Severity              Severity `json:"severity"`
	Status                string   `json:"status"` // O=Open, F=Fixed, T=Terminated
	LastModifiedDate      string   `json:"last_modified_date"`
	KnownAffectedReleases string   `json:"known_affected_releases"`
}

type BugsResponse struct {
	Bugs []Bug `json:"bugs"`

	FromCache bool `json:"-"`
}

// Advisory is a published security advisory affecting a product.
type Advisory struct {
	AdvisoryID     string   `json:"advisoryId"`
	AdvisoryTitle  string   `json:"advisoryTitle"`
	SIR            string   `json:"sir"`
	CVEs           []string `json:"cves"`
	FirstPublished string   `json:"firstPublished"`
	LastUpdated    string   `json:"lastUpdated"`
	PublicationURL string   `json:"publicationUrl"`
}

type AdvisoriesResponse struct {
	Advisories []Advisory `json:"advisories"`

	FromCache bool `json:"-"`
}

type SoftwareProduct struct {
	BasePID      string `json:"basePID"`
	ProductName  string `json:"productName"`
	SoftwareType string `json:"softwareType"`
}

type SoftwareSuggestion struct {
	ID                 string `json:"id"`
	IsSuggested        string `json:"isSuggested"`
	ReleaseDisplayName string `json:"relDispName"`
	ReleaseDate        string `json:"releaseDate"`
	TrainDisplayName   string `json:"trainDispName"`
}

type SoftwareProductSuggestions struct {
	Product     SoftwareProduct      `json:"product"`
	Suggestions []SoftwareSuggestion `json:"suggestions"`
}

type SoftwareSuggestionsResponse struct {
	ProductList []SoftwareProductSuggestions `json:"productList"`

	FromCache bool `json:"-"`
}

// CoverageStatus holds the contract coverage attributes of one serial number.
type CoverageStatus struct {
	SrNo                     string `json:"sr_no"`
	IsCovered                string `json:"is_covered"` // YES / NO
	CoverageEndDate          string `json:"coverage_end_date"`
	ServiceContractNumber    string `json:"service_contract_number"`
	ServiceLineDescr         string `json:"service_line_descr"`
	WarrantyType             string `json:"warranty_type"`
	WarrantyEndDate          string `json:"warranty_end_date"`
	ContractSiteCustomerName string `json:"contract_site_customer_name"`
}

type CoverageResponse struct {
	SerialNumbers []CoverageStatus `json:"serial_numbers"`

	FromCache bool `json:"-"`
}

// ConnectionStatus is the result of a connectivity test.
type ConnectionStatus struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
