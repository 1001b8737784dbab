package status

// Translator looks up a localized message by key.
type Translator interface {
	T(key string) string
}

type fieldMeta struct {
	labelKey   string
	successKey string
	pendingKey string
	url        string
}

var fieldCatalog = map[Field]fieldMeta{
	FieldIdentityLinked: {
		labelKey:   "aadhaar_linking_status",
		successKey: "aadhaar_linked_success",
		pendingKey: "aadhaar_linking_pending",
		url:        "https://uidai.gov.in/aadhaar_dashboard/",
	},
	FieldTransferEnabled: {
		labelKey:   "dbt_activation_status",
		successKey: "dbt_active",
		pendingKey: "dbt_activation_pending",
		url:        "https://dbtbharat.gov.in/",
	},
	FieldMappingComplete: {
		labelKey:   "npci_mapping_status",
		successKey: "npci_mapping_complete",
		pendingKey: "npci_mapping_pending",
		url:        "https://www.npci.org.in/what-we-do/upi",
	},
}

// BankAccountPortalURL is listed with the references but backs no status field.
const BankAccountPortalURL = "https://pmjdy.gov.in/account-holders"

// Reference is a static outbound link.
type Reference struct {
	Key      string `json:"key"`
	LabelKey string `json:"-"`
	URL      string `json:"url"`
}

// References lists every portal surfaced to users, field references first.
func References() []Reference {
	refs := make([]Reference, 0, len(Fields)+1)
	for _, f := range Fields {
		m := fieldCatalog[f]
		refs = append(refs, Reference{Key: string(f), LabelKey: m.labelKey, URL: m.url})
	}
	return append(refs, Reference{Key: "bank_account", LabelKey: "bank_account_status", URL: BankAccountPortalURL})
}

// MessageKey maps a field value to its message key: true gives the
// active/success message, false the pending/action-required one.
func MessageKey(f Field, value bool) string {
	m := fieldCatalog[f]
	if value {
		return m.successKey
	}
	return m.pendingKey
}

// Message is MessageKey translated.
func Message(f Field, value bool, tr Translator) string {
	return tr.T(MessageKey(f, value))
}

// Label is the localized heading for f.
func Label(f Field, tr Translator) string {
	return tr.T(fieldCatalog[f].labelKey)
}

// ReferenceURL is the fixed portal paired with f.
func ReferenceURL(f Field) string {
	return fieldCatalog[f].url
}

// LinkHint is the localized "link working" / "check link" badge.
func LinkHint(value bool, tr Translator) string {
	if value {
		return tr.T("link_working")
	}
	return tr.T("check_link")
}
