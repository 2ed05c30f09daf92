package broker

import (
	"bytes"
	"text/template"
)

// Snippet is ready-to-paste client code for one language.
type Snippet struct {
	Language string `json:"language"`
	Title    string `json:"title"`
	Code     string `json:"code"`
}

type snippetVars struct {
	AppID  string
	Key    string
	Secret string
	Host   string
	Port   int
	TLS    bool
}

var snippetTemplates = []struct {
	language string
	title    string
	tmpl     *template.Template
}{
	{"javascript", "Subscribe from the browser", template.Must(template.New("js").Parse(`import Pusher from "pusher-js";

const pusher = new Pusher("{{.Key}}", {
  wsHost: "{{.Host}}",
  wsPort: {{.Port}},
  forceTLS: {{.TLS}},
  enabledTransports: ["ws", "wss"],
  cluster: "",
});

const channel = pusher.subscribe("my-channel");
channel.bind("my-event", (data) => {
  console.log("received", data);
});
`))},
	{"node", "Publish from Node.js", template.Must(template.New("node").Parse(`const Pusher = require("pusher");

const pusher = new Pusher({
  appId: "{{.AppID}}",
  key: "{{.Key}}",
  secret: "{{.Secret}}",
  host: "{{.Host}}",
  port: "{{.Port}}",
  useTLS: {{.TLS}},
});

await pusher.trigger("my-channel", "my-event", { message: "hello world" });
`))},
	{"go", "Publish from Go", template.Must(template.New("go").Parse(`client := pusher.Client{
	AppID:  "{{.AppID}}",
	Key:    "{{.Key}}",
	Secret: "{{.Secret}}",
	Host:   "{{.Host}}:{{.Port}}",
	Secure: {{.TLS}},
}

err := client.Trigger("my-channel", "my-event", map[string]string{"message": "hello world"})
`))},
	{"python", "Publish from Python", template.Must(template.New("python").Parse(`import pusher

client = pusher.Pusher(
    app_id="{{.AppID}}",
    key="{{.Key}}",
    secret="{{.Secret}}",
    host="{{.Host}}",
    port={{.Port}},
    ssl={{if .TLS}}True{{else}}False{{end}},
)

client.trigger("my-channel", "my-event", {"message": "hello world"})
`))},
}

// Snippets renders the getting-started code for an application. Without a
// configured broker the host falls back to localhost.
func (c *Client) Snippets(creds Credentials) ([]Snippet, error) {
	vars := snippetVars{AppID: creds.AppID, Key: creds.Key, Secret: creds.Secret, Host: "localhost", Port: 6001}
	if c.Enabled() {
		vars.Host = c.cfg.Host
		vars.Port = c.cfg.Port
		vars.TLS = c.cfg.Scheme == "https"
	}

	out := make([]Snippet, 0, len(snippetTemplates))
	for _, st := range snippetTemplates {
		var buf bytes.Buffer
		if err := st.tmpl.Execute(&buf, vars); err != nil {
			return nil, err
		}
		out = append(out, Snippet{Language: st.language, Title: st.title, Code: buf.String()})
	}
	return out, nil
}
