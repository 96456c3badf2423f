package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSerials(t *testing.T) {
	tests := []struct {
		name  string
		field string
		want  []string
	}{
		{
			"empty field",
			"",
			nil,
		},
		{
			"single serial",
			"FCW2220G1DM",
			[]string{"FCW2220G1DM"},
		},
		{
			"comma separated with uneven whitespace",
			"FCW1,  FCW2 ,FCW3",
			[]string{"FCW1", "FCW2", "FCW3"},
		},
		{
			"empty segments dropped",
			"FCW1,, ,FCW2",
			[]string{"FCW1", "FCW2"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseSerials(tc.field))
		})
	}
}

func TestResolveSerials(t *testing.T) {
	tests := []struct {
		name        string
		device      *Device
		wantPrimary string
		wantStack   []string
	}{
		{
			"comma joined serial field",
			&Device{Serial: "FCW1,  FCW2 ,FCW3"},
			"FCW1",
			[]string{"FCW2", "FCW3"},
		},
		{
			"single serial without stack fields",
			&Device{Serial: "FCW1"},
			"FCW1",
			nil,
		},
		{
			"stack members from custom field",
			&Device{
				Serial:       "FCW1",
				CustomFields: map[string]string{"stack_serials": "FCW2, FCW3;FCW4 FCW5"},
			},
			"FCW1",
			[]string{"FCW2", "FCW3", "FCW4", "FCW5"},
		},
		{
			"custom field preference order",
			&Device{
				Serial: "FCW1",
				CustomFields: map[string]string{
					"member_serials": "FCW9",
					"stack_serials":  "FCW2",
				},
			},
			"FCW1",
			[]string{"FCW2"},
		},
		{
			"serial field members win over custom fields",
			&Device{
				Serial:       "FCW1,FCW2",
				CustomFields: map[string]string{"stack_serials": "FCW9"},
			},
			"FCW1",
			[]string{"FCW2"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			identity := Resolve(tc.device)

			assert.Equal(t, tc.wantPrimary, identity.PrimarySerial)
			assert.Equal(t, tc.wantStack, identity.StackSerials)
		})
	}
}

func TestResolveSoftwareVersion(t *testing.T) {
	tests := []struct {
		name   string
		device *Device
		want   string
	}{
		{
			"software_version custom field",
			&Device{CustomFields: map[string]string{"software_version": "17.9.5"}},
			"17.9.5",
		},
		{
			"field preference order",
			&Device{CustomFields: map[string]string{
				"version":     "16.12.4",
				"ios_version": "17.3.6",
			}},
			"17.3.6",
		},
		{
			"version extracted from platform name",
			&Device{Platform: "IOS-XE 17.9.5"},
			"17.9.5",
		},
		{
			"two part version from platform name",
			&Device{Platform: "NX-OS 9.3"},
			"9.3",
		},
		{
			"no version resolved",
			&Device{Platform: "IOS-XE"},
			"",
		},
		{
			"blank custom field falls through to platform",
			&Device{
				Platform:     "IOS-XE 17.9.5",
				CustomFields: map[string]string{"software_version": "  "},
			},
			"17.9.5",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			identity := Resolve(tc.device)

			assert.Equal(t, tc.want, identity.SoftwareVersion)
		})
	}
}

func TestResolveHints(t *testing.T) {
	identity := Resolve(&Device{
		Serial: "FCW1",
		Model:  "C9300-48P",
		CustomFields: map[string]string{
			"cc_series": "Cisco Catalyst 9300 Series Switches",
		},
	})

	assert.Equal(t, "C9300-48P", identity.Model)
	assert.Equal(t, "Cisco Catalyst 9300 Series Switches", identity.ProductNameHint)
}
