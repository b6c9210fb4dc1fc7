package tags

import (
	"errors"
	"fmt"
	"html/template"
	"regexp"
)

// Injector adds its elements to a page and removes exactly those again.
type Injector interface {
	Inject(p *Page) error
	Teardown(p *Page)
}

var (
	gtmContainerPattern  = regexp.MustCompile(`^GTM-[A-Z0-9]+$`)
	hubspotPortalPattern = regexp.MustCompile(`^\d+$`)
)

const (
	GTMScriptID      = "gtm-script"
	GTMNoscriptID    = "gtm-noscript"
	HubSpotScriptID  = "hs-script-loader"
	gtmNoscriptFrame = "https://www.googletagmanager.com/ns.html?id="
)

// GTM installs Google Tag Manager: the dataLayer bootstrap in the head and
// the noscript iframe at the start of the body.
type GTM struct {
	ContainerID string
}

func (g GTM) Inject(p *Page) error {
	if !gtmContainerPattern.MatchString(g.ContainerID) {
		return fmt.Errorf("invalid GTM container id %q", g.ContainerID)
	}

	p.Add(Element{
		ID:       GTMScriptID,
		Position: PositionHead,
		HTML: template.HTML(fmt.Sprintf(`<script id="%s">
(function(w,d,s,l,i){w[l]=w[l]||[];w[l].push({'gtm.start':
new Date().getTime(),event:'gtm.js'});var f=d.getElementsByTagName(s)[0],
j=d.createElement(s),dl=l!='dataLayer'?'&l='+l:'';j.async=true;j.src=
'https://www.googletagmanager.com/gtm.js?id='+i+dl;f.parentNode.insertBefore(j,f);
})(window,document,'script','dataLayer','%s');
</script>`, GTMScriptID, g.ContainerID)),
	})

	p.Add(Element{
		ID:       GTMNoscriptID,
		Position: PositionBodyStart,
		HTML: template.HTML(fmt.Sprintf(
			`<noscript id="%s"><iframe src="%s%s" height="0" width="0" style="display:none;visibility:hidden"></iframe></noscript>`,
			GTMNoscriptID, gtmNoscriptFrame, g.ContainerID)),
	})
	return nil
}

func (g GTM) Teardown(p *Page) {
	p.Remove(GTMScriptID)
	p.Remove(GTMNoscriptID)
}

// HubSpot installs the HubSpot tracking code for a portal.
type HubSpot struct {
	PortalID string
}

func (h HubSpot) Inject(p *Page) error {
	if !hubspotPortalPattern.MatchString(h.PortalID) {
		return fmt.Errorf("invalid HubSpot portal id %q", h.PortalID)
	}
	p.Add(Element{
		ID:       HubSpotScriptID,
		Position: PositionBodyEnd,
		HTML: template.HTML(fmt.Sprintf(
			`<script type="text/javascript" id="%s" async defer src="//js.hs-scripts.com/%s.js"></script>`,
			HubSpotScriptID, h.PortalID)),
	})
	return nil
}

func (h HubSpot) Teardown(p *Page) {
	p.Remove(HubSpotScriptID)
}

// Multi runs several injectors. Inject keeps going after a failure and
// returns the joined errors.
type Multi []Injector

func (m Multi) Inject(p *Page) error {
	var errs []error
	for _, inj := range m {
		if err := inj.Inject(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Teardown(p *Page) {
	for i := len(m) - 1; i >= 0; i-- {
		m[i].Teardown(p)
	}
}

// NoopInjector leaves the page untouched.
type NoopInjector struct{}

func (NoopInjector) Inject(*Page) error { return nil }

func (NoopInjector) Teardown(*Page) {}

// FromIDs builds the injectors for the configured ids. Empty ids are skipped.
func FromIDs(gtmContainerID, hubspotPortalID string) Multi {
	var m Multi
	if gtmContainerID != "" {
		m = append(m, GTM{ContainerID: gtmContainerID})
	}
	if hubspotPortalID != "" {
		m = append(m, HubSpot{PortalID: hubspotPortalID})
	}
	return m
}
