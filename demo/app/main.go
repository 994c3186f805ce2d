package main

import (
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// onlineResource is the WMS 1.3.0 link element.
type onlineResource struct {
	XMLName xml.Name `xml:"OnlineResource"`
	Type    string   `xml:"xlink:type,attr"`
	Href    string   `xml:"xlink:href,attr"`
}

type capabilities struct {
	XMLName xml.Name         `xml:"WMS_Capabilities"`
	Version string           `xml:"version,attr"`
	XMLNS   string           `xml:"xmlns,attr"`
	XLink   string           `xml:"xmlns:xlink,attr"`
	Title   string           `xml:"Service>Title"`
	Online  onlineResource   `xml:"Service>OnlineResource"`
	GetMap  []onlineResource `xml:"Capability>Request>GetMap>DCPType>HTTP>Get>OnlineResource"`
}

func main() {
	mux := http.NewServeMux()

	// Mimics an OWS dispatcher: capabilities documents link back to the
	// endpoint that was called, every other request echoes its parameters.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		params := map[string]string{}
		for name, values := range r.URL.Query() {
			params[strings.ToUpper(name)] = values[0]
		}
		logrus.WithFields(logrus.Fields{"path": r.URL.Path, "query": r.URL.RawQuery}).Info("request")

		if strings.EqualFold(params["REQUEST"], "GetCapabilities") {
			endpoint := fmt.Sprintf("http://%s%s?SERVICE=WMS&", r.Host, r.URL.Path)
			doc := capabilities{
				Version: "1.3.0",
				XMLNS:   "http://www.opengis.net/wms",
				XLink:   "http://www.w3.org/1999/xlink",
				Title:   "demo",
				Online:  onlineResource{Type: "simple", Href: endpoint},
				GetMap:  []onlineResource{{Type: "simple", Href: endpoint}},
			}
			w.Header().Set("Content-Type", "text/xml")
			_, _ = w.Write([]byte(xml.Header))
			_ = xml.NewEncoder(w).Encode(doc)
			return
		}

		names := make([]string, 0, len(params))
		for name := range params {
			names = append(names, name)
		}
		sort.Strings(names)
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintf(w, "path: %s\n", r.URL.Path)
		for _, name := range names {
			fmt.Fprintf(w, "%s: %s\n", name, params[name])
		}
	})

	srv := &http.Server{
		Addr:              ":9090",
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logrus.Info("demo OWS upstream listening on :9090")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.Fatal(err)
	}
}
