package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type keyEcho struct{}

func (keyEcho) T(key string) string { return key }

func TestMessage_BooleanMapping(t *testing.T) {
	tests := []struct {
		field Field
		value bool
		want  string
	}{
		{FieldIdentityLinked, true, "aadhaar_linked_success"},
		{FieldIdentityLinked, false, "aadhaar_linking_pending"},
		{FieldTransferEnabled, true, "dbt_active"},
		{FieldTransferEnabled, false, "dbt_activation_pending"},
		{FieldMappingComplete, true, "npci_mapping_complete"},
		{FieldMappingComplete, false, "npci_mapping_pending"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Message(tt.field, tt.value, keyEcho{}))
	}
}

func TestReferences(t *testing.T) {
	refs := References()
	assert.Len(t, refs, 4)
	assert.Equal(t, "https://uidai.gov.in/aadhaar_dashboard/", ReferenceURL(FieldIdentityLinked))
	assert.Equal(t, "https://dbtbharat.gov.in/", ReferenceURL(FieldTransferEnabled))
	assert.Equal(t, "https://www.npci.org.in/what-we-do/upi", ReferenceURL(FieldMappingComplete))
	assert.Equal(t, BankAccountPortalURL, refs[3].URL)

	for i, f := range Fields {
		assert.Equal(t, string(f), refs[i].Key)
		assert.Equal(t, ReferenceURL(f), refs[i].URL)
	}
}

func TestLinkHint(t *testing.T) {
	assert.Equal(t, "link_working", LinkHint(true, keyEcho{}))
	assert.Equal(t, "check_link", LinkHint(false, keyEcho{}))
	assert.Equal(t, "npci_mapping_status", Label(FieldMappingComplete, keyEcho{}))
}
