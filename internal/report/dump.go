// Package report writes raw endpoint snapshots to disk.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grn-bogo/ziasync/internal/zia"
)

// implementedEndpoints are the GET resources the dump command knows about.
var implementedEndpoints = map[string]bool{
	"users":           true,
	"departments":     true,
	"groups":          true,
	"security":        true,
	"urlCategories":   true,
	"vpnCredentials":  true,
	"locations":       true,
	"networkServices": true,
}

// IsImplemented reports whether the dump command supports the endpoint.
func IsImplemented(endpoint string) bool {
	return implementedEndpoints[endpoint]
}

// Dumper fetches endpoints over the shared session and writes each response
// as pretty-printed JSON to <endpoint>_<timestamp>.json.
type Dumper struct {
	client *zia.Client
	dir    string
	log    *logrus.Entry

	// now is injectable for tests.
	now func() time.Time
}

// NewDumper creates a dumper writing into dir.
func NewDumper(client *zia.Client, dir string, log *logrus.Entry) *Dumper {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Dumper{
		client: client,
		dir:    dir,
		log:    log,
		now:    time.Now,
	}
}

// Dump snapshots each endpoint. Unimplemented names are reported and
// skipped; a failing fetch or write is logged and does not abort the rest.
// Returns the files written.
func (d *Dumper) Dump(ctx context.Context, endpoints []string) ([]string, error) {
	stamp := d.now().Format("20060102_150405")

	var written []string
	for _, endpoint := range endpoints {
		if !IsImplemented(endpoint) {
			d.log.WithField("endpoint", endpoint).Warn("endpoint not implemented, skipping")
			continue
		}

		raw, err := d.client.GetRaw(ctx, endpoint)
		if err != nil {
			d.log.WithField("endpoint", endpoint).WithError(err).Error("dump failed")
			continue
		}

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, raw, "", "    "); err != nil {
			d.log.WithField("endpoint", endpoint).WithError(err).Error("response is not valid JSON")
			continue
		}

		name := filepath.Join(d.dir, fmt.Sprintf("%s_%s.json", endpoint, stamp))
		if err := os.WriteFile(name, pretty.Bytes(), 0o600); err != nil {
			d.log.WithField("file", name).WithError(err).Error("write dump file failed")
			continue
		}
		d.log.WithField("file", name).Info("endpoint dumped")
		written = append(written, name)
	}
	return written, nil
}
