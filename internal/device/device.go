// Package device models the inventory device record consumed by the
// support lookup and resolves the identifying fields the vendor API is
// queried with. The inventory system itself is an external collaborator,
// its records arrive as plain data and are never written back.
package device

// Device holds the inventory attributes of one device.
//
// The serial field may carry a comma-joined list when the device is a
// stack, with the primary member first.
//
// nolint:govet // fieldalignment struct is easier to read in the current format
type Device struct {
	Serial       string `json:"serial"`
	Manufacturer string `json:"manufacturer"`

	// Model is the device-type model string, e.g. "C9300-48P".
	Model string `json:"model"`

	// Platform is the display name of the running platform, which may
	// embed a software version, e.g. "IOS-XE 17.9.5".
	Platform string `json:"platform"`

	// CustomFields is the free-form field mapping attached to the device
	// in the inventory system.
	CustomFields map[string]string `json:"custom_fields"`
}

// Identity holds the fields resolved from a device for one support lookup.
type Identity struct {
	// PrimarySerial is the serial the per-device lookups key off.
	PrimarySerial string

	// StackSerials are the remaining stack member serials, in order.
	StackSerials []string

	// Model is the device-type model string, the product-id fallback and
	// the keyword for the general bug search.
	Model string

	// SoftwareVersion is the resolved running software version, empty
	// when none could be determined.
	SoftwareVersion string

	// ProductNameHint is the vendor's full series name when the
	// inventory carries it, used only for the name-based bug lookup.
	ProductNameHint string
}
