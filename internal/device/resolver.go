package device

import (
	"regexp"
	"strings"
)

var (
	// custom fields checked for the running software version, in order
	// of preference.
	softwareVersionFields = []string{"software_version", "sw_version", "ios_version", "version"}

	// custom fields checked for additional stack member serials when the
	// serial field holds a single value.
	stackSerialFields = []string{"stack_serials", "stack_members", "member_serials"}

	// custom field carrying the vendor's full series name.
	seriesField = "cc_series"

	versionPattern    = regexp.MustCompile(`(\d+\.\d+(?:\.\d+)?)`)
	stackSplitPattern = regexp.MustCompile(`[,;\s]+`)
)

// Resolve derives the lookup identity of a device. The result is computed
// once per lookup and not persisted.
func Resolve(d *Device) Identity {
	identity := Identity{
		Model:           d.Model,
		SoftwareVersion: resolveSoftwareVersion(d),
		ProductNameHint: d.CustomFields[seriesField],
	}

	serials := ParseSerials(d.Serial)
	if len(serials) > 0 {
		identity.PrimarySerial = serials[0]
	}

	if len(serials) > 1 {
		identity.StackSerials = serials[1:]
	} else {
		identity.StackSerials = stackSerialsFromCustomFields(d)
	}

	return identity
}

// ParseSerials splits a serial field which may contain comma-separated
// stack members, e.g. "FCW2220G1DM, FCW2221E03P" for a 2-member stack.
// The primary serial is first.
func ParseSerials(field string) []string {
	if field == "" {
		return nil
	}

	var serials []string

	for _, part := range strings.Split(field, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			serials = append(serials, part)
		}
	}

	return serials
}

// resolveSoftwareVersion checks the known custom fields first and falls
// back to a dotted-numeric pattern in the platform display name.
func resolveSoftwareVersion(d *Device) string {
	for _, field := range softwareVersionFields {
		if value := strings.TrimSpace(d.CustomFields[field]); value != "" {
			return value
		}
	}

	if d.Platform != "" {
		if match := versionPattern.FindString(d.Platform); match != "" {
			return match
		}
	}

	return ""
}

// stackSerialsFromCustomFields is the fallback when the serial field does
// not carry comma-separated members. Values split on commas, semicolons or
// whitespace runs.
func stackSerialsFromCustomFields(d *Device) []string {
	for _, field := range stackSerialFields {
		value := strings.TrimSpace(d.CustomFields[field])
		if value == "" {
			continue
		}

		var serials []string

		for _, part := range stackSplitPattern.Split(value, -1) {
			if part != "" {
				serials = append(serials, part)
			}
		}

		return serials
	}

	return nil
}
