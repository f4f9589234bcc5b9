package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sort"
	"strconv"
	"strings"

	"github.com/jupierce/coverage-report/pkg/coverage"
	"github.com/jupierce/coverage-report/pkg/export"
	"github.com/jupierce/coverage-report/pkg/tree"
)

//go:embed resources
var resourceFS embed.FS

const (
	styleSheet = "style.css"
	folderIcon = "folder.svg"
	fileIcon   = "file.svg"
)

// HTML is the light-themed multi-page renderer.
type HTML struct {
	module *template.Template
	file   *template.Template
}

// NewHTML parses the page templates.
func NewHTML() (*HTML, error) {
	funcMap := template.FuncMap{
		"pct":      FormatPercentage,
		"pctClass": coverageClass,
		"ratio":    FormatRatio,
	}

	module, err := template.New("module").Funcs(funcMap).Parse(pageHeader + moduleBody + pageFooter)
	if err != nil {
		return nil, fmt.Errorf("parse module template: %w", err)
	}
	file, err := template.New("file").Funcs(funcMap).Parse(pageHeader + fileBody + pageFooter)
	if err != nil {
		return nil, fmt.Errorf("parse file template: %w", err)
	}
	return &HTML{module: module, file: file}, nil
}

func coverageClass(c coverage.Counters) string {
	return PercentageClass("cov", c)
}

type row struct {
	Href     string
	Label    string
	Icon     string
	Coverage coverage.Aggregated
}

type sourceLine struct {
	Number int
	Text   string
	Hits   string
	Class  string
}

type pageData struct {
	Title       string
	Breadcrumbs []linkData
	Style       string
	Coverage    coverage.Aggregated

	Rows []row

	SourcePath  string
	Unavailable bool
	Lines       []sourceLine
	Functions   []coverage.FunctionHit
}

type linkData struct {
	Href  string
	Label string
}

func (h *HTML) base(page export.Page, title string, agg coverage.Aggregated) (pageData, error) {
	style, err := page.Links.LinkToSharedResource(page.Root, page.Node, styleSheet)
	if err != nil {
		return pageData{}, err
	}
	crumbs := make([]linkData, len(page.Breadcrumbs))
	for i, l := range page.Breadcrumbs {
		crumbs[i] = linkData{Href: l.Href, Label: l.Label}
	}
	return pageData{Title: title, Breadcrumbs: crumbs, Style: style, Coverage: agg}, nil
}

// RenderModule renders a container's index page: its child modules, then
// its files, each sorted by name.
func (h *HTML) RenderModule(page export.Page, c tree.Container) ([]byte, error) {
	data, err := h.base(page, c.Name(), c.Coverage())
	if err != nil {
		return nil, err
	}

	children := append([]tree.Container(nil), c.Children()...)
	sort.SliceStable(children, func(i, j int) bool { return children[i].Name() < children[j].Name() })
	files := append([]*tree.File(nil), c.Files()...)
	sort.SliceStable(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })

	for _, child := range children {
		r, err := h.row(page, c, child, folderIcon)
		if err != nil {
			return nil, err
		}
		data.Rows = append(data.Rows, r)
	}
	for _, f := range files {
		icon, ok := IconFor(f.Name())
		if !ok {
			icon = fileIcon
		}
		r, err := h.row(page, c, f, icon)
		if err != nil {
			return nil, err
		}
		data.Rows = append(data.Rows, r)
	}

	var buf bytes.Buffer
	if err := h.module.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute module template: %w", err)
	}
	return buf.Bytes(), nil
}

func (h *HTML) row(page export.Page, from tree.Container, n tree.Node, icon string) (row, error) {
	link, err := page.Links.LinkTo(from, n)
	if err != nil {
		return row{}, err
	}
	iconHref, err := page.Links.LinkToSharedResource(page.Root, page.Node, icon)
	if err != nil {
		return row{}, err
	}
	return row{Href: link.Href, Label: link.Label, Icon: iconHref, Coverage: n.Coverage()}, nil
}

// RenderFile renders a file's detail page. A source that cannot be read
// yields a notice instead of the line listing.
func (h *HTML) RenderFile(page export.Page, f *tree.File, lines export.LinesProvider) ([]byte, error) {
	data, err := h.base(page, f.Name(), f.Coverage())
	if err != nil {
		return nil, err
	}
	data.SourcePath = f.SourcePath()
	data.Functions = f.FunctionHits()

	text, err := lines.Lines()
	if err != nil {
		data.Unavailable = true
	}
	for i, line := range text {
		sl := sourceLine{Number: i + 1, Text: strings.ReplaceAll(line, "\t", "    ")}
		if hits, ok := f.Hits(uint32(i + 1)); ok {
			sl.Hits = strconv.FormatUint(hits, 10)
			sl.Class = "line-miss"
			if hits > 0 {
				sl.Class = "line-hit"
			}
		}
		data.Lines = append(data.Lines, sl)
	}

	var buf bytes.Buffer
	if err := h.file.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute file template: %w", err)
	}
	return buf.Bytes(), nil
}

// Resources returns the style sheet, the generic icons and the language
// icons of the files under root.
func (h *HTML) Resources(root tree.Container) []export.Resource {
	names := []string{styleSheet, folderIcon, fileIcon}
	seen := map[string]bool{}
	var langIcons []string
	for _, f := range tree.EnumerateFiles(root) {
		if icon, ok := IconFor(f.Name()); ok && !seen[icon] {
			seen[icon] = true
			langIcons = append(langIcons, icon)
		}
	}
	sort.Strings(langIcons)
	names = append(names, langIcons...)

	out := make([]export.Resource, 0, len(names))
	for _, name := range names {
		data, err := resourceFS.ReadFile("resources/" + name)
		if err != nil {
			continue
		}
		out = append(out, export.Resource{Name: name, Data: data})
	}
	return out
}

const pageHeader = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Coverage: {{.Title}}</title>
    <link rel="stylesheet" href="{{.Style}}">
</head>
<body>
<div class="container">
    <header>
        <h1>{{.Title}}</h1>
        <nav class="breadcrumbs">{{range $i, $c := .Breadcrumbs}}{{if $i}} / {{end}}<a href="{{$c.Href}}">{{$c.Label}}</a>{{end}}</nav>
    </header>
    <div class="gauges">
        <div class="gauge"><div class="label">Lines</div><div class="value {{pctClass .Coverage.Lines}}">{{pct .Coverage.Lines}}</div><div>{{ratio .Coverage.Lines}}</div></div>
        <div class="gauge"><div class="label">Functions</div><div class="value {{pctClass .Coverage.Functions}}">{{pct .Coverage.Functions}}</div><div>{{ratio .Coverage.Functions}}</div></div>
        <div class="gauge"><div class="label">Branches</div><div class="value {{pctClass .Coverage.Branches}}">{{pct .Coverage.Branches}}</div><div>{{ratio .Coverage.Branches}}</div></div>
    </div>
`

const moduleBody = `    <table>
        <thead>
            <tr><th>Name</th><th>Lines</th><th></th><th>Functions</th><th></th><th>Branches</th><th></th></tr>
        </thead>
        <tbody>
{{- range .Rows}}
            <tr>
                <td class="name"><img src="{{.Icon}}" alt=""><a href="{{.Href}}">{{.Label}}</a></td>
                <td class="num">{{ratio .Coverage.Lines}}</td><td class="num {{pctClass .Coverage.Lines}}">{{pct .Coverage.Lines}}</td>
                <td class="num">{{ratio .Coverage.Functions}}</td><td class="num {{pctClass .Coverage.Functions}}">{{pct .Coverage.Functions}}</td>
                <td class="num">{{ratio .Coverage.Branches}}</td><td class="num {{pctClass .Coverage.Branches}}">{{pct .Coverage.Branches}}</td>
            </tr>
{{- end}}
        </tbody>
    </table>
`

const fileBody = `{{if .Functions}}    <h2>Functions</h2>
    <table>
        <thead><tr><th>Function</th><th>Hits</th></tr></thead>
        <tbody>
{{- range .Functions}}
            <tr><td>{{.Name}}</td><td class="num {{if .Hits}}cov-10{{else}}cov-0{{end}}">{{.Hits}}</td></tr>
{{- end}}
        </tbody>
    </table>
{{end}}    <h2>Source</h2>
{{if .Unavailable}}    <div class="notice">Source unavailable: {{.SourcePath}}</div>
{{else}}    <table class="source-code"><tbody>
{{- range .Lines}}
        <tr class="{{.Class}}"><td class="line-num" id="L{{.Number}}">{{.Number}}</td><td class="line-hits">{{.Hits}}</td><td class="line-content">{{.Text}}</td></tr>
{{- end}}
    </tbody></table>
{{end}}`

const pageFooter = `</div>
</body>
</html>
`
