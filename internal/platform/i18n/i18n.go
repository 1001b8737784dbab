// Package i18n loads the embedded message catalogs and negotiates the display
// language for a request.
//
// Hindi is the default language. Keys missing from a locale fall back to
// English, then to the key itself.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var embeddedLocales embed.FS

var (
	// Default is the language used when nothing better matches.
	Default = language.Hindi
	// Fallback supplies keys a locale does not define.
	Fallback = language.English
)

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Catalog holds every loaded locale. It is read-only after Load.
type Catalog struct {
	messages map[language.Tag]map[string]string
	tags     []language.Tag
	matcher  language.Matcher
}

// Load parses the embedded catalogs.
func Load() (*Catalog, error) {
	return LoadFromFS(embeddedLocales)
}

// MustLoad is Load for package initialization and tests.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// LoadFromFS parses locales/*.yaml from fsys.
func LoadFromFS(fsys fs.FS) (*Catalog, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	sort.Strings(paths)

	c := &Catalog{messages: map[language.Tag]map[string]string{}}
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
		tag, err := language.Parse(strings.TrimSpace(file.Locale))
		if err != nil {
			return nil, fmt.Errorf("catalog %s: locale %q: %w", path, file.Locale, err)
		}
		if _, dup := c.messages[tag]; dup {
			return nil, fmt.Errorf("catalog %s: locale %s defined twice", path, tag)
		}
		c.messages[tag] = file.Messages
	}

	for _, required := range []language.Tag{Default, Fallback} {
		if _, ok := c.messages[required]; !ok {
			return nil, fmt.Errorf("locale %s is not defined in catalogs", required)
		}
	}

	// The matcher falls back to its first tag.
	c.tags = append(c.tags, Default)
	for tag := range c.messages {
		if tag != Default {
			c.tags = append(c.tags, tag)
		}
	}
	rest := c.tags[1:]
	sort.Slice(rest, func(i, j int) bool { return rest[i].String() < rest[j].String() })
	c.matcher = language.NewMatcher(c.tags)
	return c, nil
}

// Tags lists the supported languages, default first.
func (c *Catalog) Tags() []language.Tag {
	return append([]language.Tag(nil), c.tags...)
}

// Match picks the best supported language for the preferences, in order.
func (c *Catalog) Match(preferred ...language.Tag) language.Tag {
	if len(preferred) == 0 {
		return Default
	}
	_, idx, conf := c.matcher.Match(preferred...)
	if conf == language.No {
		return Default
	}
	return c.tags[idx]
}

// Resolve negotiates from an explicit ?lang= value, then an Accept-Language
// header. Unparseable input is ignored.
func (c *Catalog) Resolve(explicit, acceptLanguage string) language.Tag {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if tag, err := language.Parse(explicit); err == nil {
			return c.Match(tag)
		}
	}
	if acceptLanguage = strings.TrimSpace(acceptLanguage); acceptLanguage != "" {
		if tags, _, err := language.ParseAcceptLanguage(acceptLanguage); err == nil && len(tags) > 0 {
			return c.Match(tags...)
		}
	}
	return Default
}

// Printer returns the message lookup for tag.
func (c *Catalog) Printer(tag language.Tag) *Printer {
	tag = c.Match(tag)
	return &Printer{
		tag:      tag,
		primary:  c.messages[tag],
		fallback: c.messages[Fallback],
	}
}

// Printer translates keys for a single language.
type Printer struct {
	tag      language.Tag
	primary  map[string]string
	fallback map[string]string
}

func (p *Printer) Tag() language.Tag { return p.tag }

// T returns the message for key.
func (p *Printer) T(key string) string {
	if msg, ok := p.primary[key]; ok && msg != "" {
		return msg
	}
	if msg, ok := p.fallback[key]; ok && msg != "" {
		return msg
	}
	return key
}
