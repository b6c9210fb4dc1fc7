package tags

import (
	"html/template"
	"io"
)

// ShellData is the per-request part of the page shell.
type ShellData struct {
	Title string
	Route string
}

var shellTemplate = template.Must(template.New("shell").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
{{range .Head}}{{.HTML}}
{{end}}</head>
<body data-route="{{.Route}}">
{{range .BodyStart}}{{.HTML}}
{{end}}<div id="root"></div>
{{range .BodyEnd}}{{.HTML}}
{{end}}</body>
</html>
`))

// Render writes the page shell with every element of p in place.
func Render(w io.Writer, p *Page, data ShellData) error {
	if data.Title == "" {
		data.Title = "Personal Loans"
	}
	return shellTemplate.Execute(w, struct {
		ShellData
		Head      []Element
		BodyStart []Element
		BodyEnd   []Element
	}{
		ShellData: data,
		Head:      p.At(PositionHead),
		BodyStart: p.At(PositionBodyStart),
		BodyEnd:   p.At(PositionBodyEnd),
	})
}
