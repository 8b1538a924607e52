package product

import "github.com/microcosm-cc/bluemonday"

// markup is the allowlist for the storefront-rendered fields: basic
// formatting only, https links opened in a new tab. Policies are safe for
// concurrent use once built.
var markup = newMarkupPolicy()

func newMarkupPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "ul", "ol", "li", "strong", "em", "b", "i")
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("https")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)
	return p
}

// sanitize strips disallowed markup from the subtext and description.
func (f Fields) sanitize() Fields {
	if f.Subtext != nil {
		v := markup.Sanitize(*f.Subtext)
		f.Subtext = &v
	}
	if f.Description != nil {
		v := markup.Sanitize(*f.Description)
		f.Description = &v
	}
	return f
}
