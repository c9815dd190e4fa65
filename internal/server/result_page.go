package server

import (
	"bytes"
	"html/template"
	"net/http"

	"emindy/internal/assessment"
	"emindy/internal/logging"
)

const invalidResultMessage = "Invalid or missing result"

var resultPage = template.Must(template.New("result").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="robots" content="noindex">
<title>{{if .Valid}}{{.Title}} result{{else}}Result{{end}} · eMINDy</title>
</head>
<body>
<main class="em-result">
{{- if .Valid}}
<h1>{{.Title}}</h1>
<p class="em-result__score">{{.ScoreLabel}}: <strong>{{.Score}}</strong> / {{.Max}}</p>
<p class="em-result__band">{{.Band}}</p>
<p class="em-result__advice">{{.Advice}}</p>
{{- else}}
<p class="em-result__error">{{.Message}}</p>
{{- end}}
</main>
</body>
</html>
`))

type resultView struct {
	Valid      bool
	Message    string
	Title      string
	ScoreLabel string
	Score      int
	Max        int
	Band       string
	Advice     string
}

// handleResult renders a signed result link. Every verification failure
// renders the same page so callers cannot tell which check failed.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethod(w, r, http.MethodGet) {
		return
	}
	status := http.StatusOK
	view := resultView{Message: invalidResultMessage}

	result, err := s.signer.VerifyQuery(r.URL.Query())
	if err != nil {
		status = http.StatusBadRequest
		s.metrics.verifications.WithLabelValues("invalid").Inc()
	} else {
		s.metrics.verifications.WithLabelValues("ok").Inc()
		view = viewFor(result)
	}

	var buf bytes.Buffer
	if err := resultPage.Execute(&buf, view); err != nil {
		s.log(r.Context()).Error("render result page failed", logging.Error(err))
		http.Error(w, invalidResultMessage, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func viewFor(result assessment.Result) resultView {
	title := string(result.Kind)
	if def, ok := assessment.Lookup(string(result.Kind)); ok {
		title = def.Title
	}
	return resultView{
		Valid:      true,
		Title:      title,
		ScoreLabel: result.ScoreLabel,
		Score:      result.Score,
		Max:        result.Max,
		Band:       result.Band,
		Advice:     result.Advice,
	}
}
