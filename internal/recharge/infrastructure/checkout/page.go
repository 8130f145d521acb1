package checkout

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
)

const defaultScriptURL = "https://checkout.razorpay.com/v1/checkout.js"

var pageTemplate = template.Must(template.New("checkout").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<script src="{{.ScriptURL}}"></script>
</head>
<body>
<script>
(function () {
  var completeURL = {{.CompleteURL}};
  var dismissURL = {{.DismissURL}};
  var sent = false;
  function post(url, body) {
    if (sent) { return; }
    sent = true;
    fetch(url, {method: "POST", headers: {"Content-Type": "application/json"}, body: JSON.stringify(body || {})})
      .finally(function () {
        if (window.ReactNativeWebView) { window.ReactNativeWebView.postMessage(JSON.stringify({type: "closed"})); }
      });
  }
  var options = JSON.parse({{.OptionsJSON}});
  options.handler = function (response) {
    post(completeURL, {razorpay_payment_id: response.razorpay_payment_id});
  };
  options.modal = {ondismiss: function () { post(dismissURL); }};
  new Razorpay(options).open();
})();
</script>
</body>
</html>
`))

// PageRenderer renders the embedded page that hosts the provider checkout.
type PageRenderer struct {
	scriptURL string
	title     string
}

// NewPageRenderer constructs a renderer. An empty scriptURL uses the provider default.
func NewPageRenderer(scriptURL, title string) *PageRenderer {
	if scriptURL == "" {
		scriptURL = defaultScriptURL
	}
	if title == "" {
		title = "Checkout"
	}
	return &PageRenderer{scriptURL: scriptURL, title: title}
}

type pageData struct {
	Title       string
	ScriptURL   string
	CompleteURL string
	DismissURL  string
	OptionsJSON string
}

// Render writes the page for options; callbacks post to completeURL and dismissURL.
func (r *PageRenderer) Render(options Options, completeURL, dismissURL string) ([]byte, error) {
	if completeURL == "" || dismissURL == "" {
		return nil, errors.New("checkout page: empty callback url")
	}
	raw, err := json.Marshal(options)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = pageTemplate.Execute(&buf, pageData{
		Title:       r.title,
		ScriptURL:   r.scriptURL,
		CompleteURL: completeURL,
		DismissURL:  dismissURL,
		OptionsJSON: string(raw),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
