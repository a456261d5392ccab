package ui

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/me/priosim/internal/report"
	"github.com/me/priosim/pkg/model"
)

// Template functions available in all templates.
var templateFuncs = template.FuncMap{
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02 15:04:05")
	},
	"stateColor": func(state model.EngineState) string {
		switch state {
		case model.EngineStateIdle:
			return "bg-gray-100 text-gray-800"
		case model.EngineStateStepping:
			return "bg-blue-100 text-blue-800"
		case model.EngineStateCompleted:
			return "bg-green-100 text-green-800"
		default:
			return "bg-gray-100 text-gray-800"
		}
	},
	"tick": func(p *int) string {
		if p == nil {
			return "-"
		}
		return strconv.Itoa(*p)
	},
	"eventText": func(ev model.Event) string {
		var buf bytes.Buffer
		report.WriteEvent(&buf, ev)
		return strings.TrimSpace(buf.String())
	},
	"percent": func(a, b int) int {
		if b == 0 {
			return 0
		}
		return (a * 100) / b
	},
	"width": func(p float64) template.CSS {
		return template.CSS(fmt.Sprintf("width: %.2f%%", p))
	},
	"float": func(f float64) string {
		return strconv.FormatFloat(f, 'f', 2, 64)
	},
}

// renderTemplate renders a named page inside the layout.
func renderTemplate(w io.Writer, name string, data map[string]any) error {
	content, ok := templates[name]
	if !ok {
		return fmt.Errorf("template not found: %s", name)
	}

	tmpl, err := template.New("layout").Funcs(templateFuncs).Parse(templates["layout"])
	if err != nil {
		return fmt.Errorf("parse layout: %w", err)
	}
	if _, err = tmpl.New("content").Parse(content); err != nil {
		return fmt.Errorf("parse content: %w", err)
	}

	return tmpl.Execute(w, data)
}

var templates = map[string]string{
	"layout": `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <script src="https://cdn.tailwindcss.com"></script>
</head>
<body class="bg-gray-50 min-h-screen">
    <nav class="bg-white shadow-sm border-b">
        <div class="max-w-7xl mx-auto px-4 sm:px-6 lg:px-8">
            <div class="flex h-16">
                <a href="/ui/" class="flex items-center px-2 py-2 text-xl font-bold text-indigo-600">priosim</a>
                <span class="flex items-center ml-4 text-sm text-gray-500">non-preemptive priority scheduling</span>
            </div>
        </div>
    </nav>
    <main class="max-w-7xl mx-auto py-6 sm:px-6 lg:px-8">
        {{template "content" .}}
    </main>
</body>
</html>`,

	"dashboard": `{{define "content"}}
<div class="px-4 py-6 sm:px-0">
    <h1 class="text-2xl font-semibold text-gray-900 mb-6">Sessions</h1>

    {{if .Error}}
    <div class="rounded-md bg-red-50 p-4 mb-6">
        <div class="text-sm text-red-700">{{.Error}}</div>
        {{range .Details}}<div class="text-sm text-red-600 ml-4">{{.Field}}: {{.Message}}</div>{{end}}
    </div>
    {{end}}

    <div class="grid grid-cols-1 gap-6 lg:grid-cols-3">
        <div class="bg-white shadow rounded-lg p-6 lg:col-span-1">
            <h2 class="text-lg font-medium text-gray-900 mb-4">New session</h2>
            <form action="/ui/sessions/" method="POST" class="space-y-4">
                <label class="block text-sm text-gray-700" for="processes">One process per line: arrival,burst,priority</label>
                <textarea id="processes" name="processes" rows="8" class="w-full border rounded p-2 font-mono text-sm">{{.Input}}</textarea>
                <button type="submit" class="px-4 py-2 rounded-md text-white bg-indigo-600 hover:bg-indigo-700 text-sm">Create</button>
            </form>
            <form action="/ui/sessions/" method="POST" class="mt-4">
                <input type="hidden" name="sample" value="1">
                <button type="submit" class="px-4 py-2 rounded-md border text-sm">Use the sample workload</button>
            </form>
            {{if .Workloads}}
            <form action="/ui/sessions/" method="POST" class="mt-4 space-y-2">
                <select name="workload_id" class="w-full border rounded p-2 text-sm">
                    {{range .Workloads}}<option value="{{.ID}}">{{.Name}} ({{len .Processes}} processes)</option>{{end}}
                </select>
                <button type="submit" class="px-4 py-2 rounded-md border text-sm">From stored workload</button>
            </form>
            {{end}}
        </div>

        <div class="bg-white shadow rounded-lg p-6 lg:col-span-2">
            <p class="text-sm text-gray-500 mb-4">
                {{index .Counts "IDLE"}} idle, {{index .Counts "STEPPING"}} stepping, {{index .Counts "COMPLETED"}} completed. Up {{.Uptime}}.
            </p>
            <table class="min-w-full divide-y divide-gray-200 text-sm">
                <thead><tr class="text-left text-gray-500">
                    <th class="py-2">Session</th><th>State</th><th>Time</th><th>Progress</th><th>Created</th>
                </tr></thead>
                <tbody>
                {{range .Sessions}}
                <tr class="border-t">
                    <td class="py-2"><a class="text-indigo-600 hover:underline" href="/ui/sessions/{{.ID}}">{{.ID}}</a></td>
                    <td><span class="px-2 rounded-full {{stateColor .State}}">{{.State}}</span></td>
                    <td>{{.Time}}</td>
                    <td>{{.Completed}}/{{.Total}} ({{percent .Completed .Total}}%)</td>
                    <td>{{formatTime .CreatedAt}}</td>
                </tr>
                {{else}}
                <tr><td colspan="5" class="py-4 text-center text-gray-500">No sessions yet</td></tr>
                {{end}}
                </tbody>
            </table>
        </div>
    </div>
</div>
{{end}}`,

	"session": `{{define "content"}}
<div class="px-4 py-6 sm:px-0 space-y-6">
    <div class="flex items-center justify-between">
        <h1 class="text-2xl font-semibold text-gray-900">{{.ID}}</h1>
        <span class="px-3 py-1 rounded-full text-sm {{stateColor .Snapshot.State}}">{{.Snapshot.State}}</span>
    </div>

    {{if .Error}}
    <div class="rounded-md bg-red-50 p-4"><div class="text-sm text-red-700">{{.Error}}</div></div>
    {{end}}

    <div class="flex gap-2">
        {{if eq .Snapshot.State "IDLE"}}
        <form method="POST" action="/ui/sessions/{{.ID}}/start"><button class="px-4 py-2 rounded-md text-white bg-indigo-600 text-sm">Start</button></form>
        {{end}}
        {{if eq .Snapshot.State "STEPPING"}}
        <form method="POST" action="/ui/sessions/{{.ID}}/step"><button class="px-4 py-2 rounded-md text-white bg-indigo-600 text-sm">Step</button></form>
        {{end}}
        {{if ne .Snapshot.State "COMPLETED"}}
        <form method="POST" action="/ui/sessions/{{.ID}}/run"><button class="px-4 py-2 rounded-md border text-sm">Run to completion</button></form>
        {{end}}
        <form method="POST" action="/ui/sessions/{{.ID}}/reset"><button class="px-4 py-2 rounded-md border text-sm">Reset</button></form>
        <form method="POST" action="/ui/sessions/{{.ID}}/delete"><button class="px-4 py-2 rounded-md border text-sm text-red-600">Delete</button></form>
    </div>

    <div class="bg-white shadow rounded-lg p-6">
        <p class="text-sm text-gray-700">Time {{.Snapshot.Time}} &middot; {{.Snapshot.Completed}}/{{.Snapshot.Total}} completed &middot; {{.Snapshot.IdleTicks}} idle ticks</p>
        <p class="text-sm text-gray-700 mt-2">Ready queue:
            {{range .Snapshot.ReadyQueue}}<span class="ml-2 px-2 rounded bg-yellow-100">P{{.ProcessID}} (pr {{.Priority}})</span>{{else}}<span class="ml-2 text-gray-400">empty</span>{{end}}
        </p>
    </div>

    <div class="bg-white shadow rounded-lg p-6">
        <h2 class="text-lg font-medium text-gray-900 mb-2">Gantt chart</h2>
        {{if .Gantt}}
        <div class="flex w-full h-10 border rounded overflow-hidden text-xs">
            {{range .Gantt}}
            <div class="flex items-center justify-center border-r {{if .Idle}}bg-gray-200 text-gray-500{{else}}bg-indigo-500 text-white{{end}}" style="{{width .Percent}}" title="{{.Label}} {{.Start}}-{{.End}}">{{.Label}}</div>
            {{end}}
        </div>
        {{else}}
        <p class="text-sm text-gray-400">Nothing has run yet</p>
        {{end}}
    </div>

    <div class="bg-white shadow rounded-lg p-6">
        <h2 class="text-lg font-medium text-gray-900 mb-2">Processes</h2>
        <table class="min-w-full text-sm">
            <thead><tr class="text-left text-gray-500"><th>Process</th><th>Arrival</th><th>Burst</th><th>Priority</th><th>Start</th><th>Completion</th></tr></thead>
            <tbody>
            {{range .Snapshot.Processes}}
            <tr class="border-t {{if .Done}}text-gray-400{{end}}"><td class="py-1">P{{.ID}}</td><td>{{.Arrival}}</td><td>{{.Burst}}</td><td>{{.Priority}}</td><td>{{tick .Start}}</td><td>{{tick .Completion}}</td></tr>
            {{end}}
            </tbody>
        </table>
    </div>

    {{with .Metrics}}
    <div class="bg-white shadow rounded-lg p-6">
        <h2 class="text-lg font-medium text-gray-900 mb-2">Results</h2>
        <table class="min-w-full text-sm">
            <thead><tr class="text-left text-gray-500"><th>Process</th><th>Turnaround</th><th>Waiting</th><th>Response</th></tr></thead>
            <tbody>
            {{range .Processes}}<tr class="border-t"><td class="py-1">P{{.ID}}</td><td>{{.Turnaround}}</td><td>{{.Waiting}}</td><td>{{.Response}}</td></tr>{{end}}
            <tr class="border-t font-medium"><td class="py-1">Average</td><td>{{float .AvgTurnaround}}</td><td>{{float .AvgWaiting}}</td><td>{{float .AvgResponse}}</td></tr>
            </tbody>
        </table>
        <p class="text-sm text-gray-600 mt-2">CPU utilization {{float .CPUUtilization}}, throughput {{float .Throughput}} per tick</p>
    </div>
    {{end}}

    <div class="bg-white shadow rounded-lg p-6">
        <h2 class="text-lg font-medium text-gray-900 mb-2">Events</h2>
        <ol class="text-sm font-mono text-gray-700">
            {{range .Events}}<li>#{{.Seq}} {{eventText .}}</li>{{else}}<li class="text-gray-400">No events in this run</li>{{end}}
        </ol>
    </div>
</div>
{{end}}`,

	"error": `{{define "content"}}
<div class="min-h-screen flex items-center justify-center">
    <div class="text-center">
        <h1 class="text-4xl font-bold text-gray-900 mb-4">Error</h1>
        <p class="text-gray-600 mb-8">{{.Message}}</p>
        <a href="/ui/" class="text-indigo-600 hover:text-indigo-500">Return to sessions</a>
    </div>
</div>
{{end}}`,
}
