package build

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Values are the variables available to the Apache templates
type Values map[string]interface{}

// loadValues reads a YAML values file
func loadValues(path string) (Values, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	values := Values{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return values, nil
}

// apps returns the configured apps, or every directory below apps/
func (p *Pipeline) apps() ([]string, error) {
	if len(p.opts.Apps) > 0 {
		return p.opts.Apps, nil
	}

	entries, err := os.ReadDir(filepath.Join(p.opts.Source, "apps"))
	if err != nil {
		return nil, fmt.Errorf("failed to list apps: %w", err)
	}

	var apps []string
	for _, entry := range entries {
		if entry.IsDir() {
			apps = append(apps, entry.Name())
		}
	}
	sort.Strings(apps)
	return apps, nil
}

// ConfigApache renders apache/httpd.conf and the app.conf of every app into
// target/optimized/apache. Each app's values are overlaid on the global
// values under the app name, with its log files derived from logDirectory.
func (p *Pipeline) ConfigApache(ctx context.Context) error {
	values, err := loadValues(filepath.Join(p.opts.Source, "apache", "apache.yaml"))
	if err != nil {
		return err
	}

	apps, err := p.apps()
	if err != nil {
		return err
	}

	logDirectory, _ := values["logDirectory"].(string)
	for _, app := range apps {
		appValues, err := loadValues(filepath.Join(p.opts.Source, "apps", app, "apache", "apache.yaml"))
		if err != nil {
			return err
		}
		appValues["errorLog"] = logDirectory + app + "_error.log"
		appValues["customLog"] = logDirectory + app + "_custom.log"
		values[app] = appValues
	}

	outDir := filepath.Join(p.optimizedDir(), "apache")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	httpd := filepath.Join(outDir, "httpd.conf")
	if err := renderTemplate(filepath.Join(p.opts.Source, "apache", "httpd.conf"), httpd, values); err != nil {
		return err
	}
	p.logger.WithField("file", httpd).Info("Rendered httpd.conf")

	for _, app := range apps {
		data := Values{}
		for k, v := range values {
			data[k] = v
		}
		data["app"] = values[app]
		data["appName"] = app

		out := filepath.Join(outDir, "app_"+app+".conf")
		if err := renderTemplate(filepath.Join(p.opts.Source, "apps", app, "apache", "app.conf"), out, data); err != nil {
			return err
		}
		p.logger.WithField("file", out).Info("Rendered app configuration")
	}

	return nil
}

func renderTemplate(src, dst string, data interface{}) error {
	text, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}

	tmpl, err := template.New(filepath.Base(src)).Option("missingkey=error").Parse(string(text))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", src, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", src, err)
	}
	return os.WriteFile(dst, buf.Bytes(), 0644)
}

// ChangePaths points the document roots of the rendered app configuration
// at the optimized release tree
func (p *Pipeline) ChangePaths(ctx context.Context) error {
	apps, err := p.apps()
	if err != nil {
		return err
	}

	replacement := "grasshopper-ui/" + strings.Trim(filepath.ToSlash(p.opts.Target), "/") + "/" + OptimizedDir
	for _, app := range apps {
		file := filepath.Join(p.optimizedDir(), "apache", "app_"+app+".conf")
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}

		out := strings.ReplaceAll(string(data), "grasshopper-ui", replacement)
		if err := os.WriteFile(file, []byte(out), 0644); err != nil {
			return err
		}
		p.logger.WithField("app", app).Info("Changed paths of app configuration")
	}
	return nil
}
