package i18n

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

var punjabi = language.MustParse("pa")

func TestLoad_EmbeddedCatalogs(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	tags := c.Tags()
	require.NotEmpty(t, tags)
	assert.Equal(t, Default, tags[0])
	assert.ElementsMatch(t, []language.Tag{language.Hindi, language.English, punjabi}, tags)
}

func TestResolve(t *testing.T) {
	c := MustLoad()

	tests := []struct {
		name     string
		explicit string
		accept   string
		want     language.Tag
	}{
		{name: "default is hindi", want: language.Hindi},
		{name: "explicit wins", explicit: "en", accept: "hi", want: language.English},
		{name: "explicit punjabi", explicit: "pa", want: punjabi},
		{name: "regional variant matches base", explicit: "en-IN", want: language.English},
		{name: "accept language", accept: "pa-IN,pa;q=0.9,en;q=0.5", want: punjabi},
		{name: "accept language ordering", accept: "fr;q=0.9,en;q=0.8", want: language.English},
		{name: "unsupported falls back to default", accept: "ja", want: language.Hindi},
		{name: "garbage explicit is ignored", explicit: "!!", accept: "en", want: language.English},
		{name: "garbage header is ignored", accept: ";;;q=abc", want: language.Hindi},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Resolve(tt.explicit, tt.accept))
		})
	}
}

func TestPrinter_Fallbacks(t *testing.T) {
	c := MustLoad()

	hi := c.Printer(language.Hindi)
	assert.Equal(t, "आपका आधार सफलतापूर्वक लिंक है।", hi.T("aadhaar_linked_success"))

	pa := c.Printer(punjabi)
	assert.Equal(t, punjabi, pa.Tag())
	assert.Equal(t, "ਲਿੰਕ ਜਾਂਚੋ ⚠️", pa.T("check_link"))
	assert.Equal(t, "Your Aadhaar is successfully linked.", pa.T("aadhaar_linked_success"))

	assert.Equal(t, "no_such_key", hi.T("no_such_key"))
}

func TestLoadFromFS_RequiresDefaultAndFallback(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en.yaml": {Data: []byte("locale: en\nmessages:\n  a: b\n")},
	}
	_, err := LoadFromFS(fsys)
	assert.ErrorContains(t, err, "hi")
}

func TestLoadFromFS_RejectsBadLocale(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/xx.yaml": {Data: []byte("locale: \"not a tag!\"\nmessages: {}\n")},
	}
	_, err := LoadFromFS(fsys)
	assert.Error(t, err)
}
