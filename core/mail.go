package core

import (
	"bytes"
	"fmt"
	htmltmpl "html/template"
	"net/mail"
	"path/filepath"
	"strings"
	texttmpl "text/template"
)

type (
	tmplCacheEntry map[string]interface{}    // {ext: *Template}
	tmplCache      map[string]tmplCacheEntry // {name: tmplCacheEntry}

	Attachment struct {
		Content     *bytes.Buffer
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // simple text/plain, non-templated content
		Attachments []Attachment

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails.
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

var emailTemplates tmplCache

// ParseEmailTemplates loads and caches all email templates in
// `<workdir>/assets/templates/email`. Files prefixed with "_" are layout bases.
func ParseEmailTemplates(conf *Config, logger Logger) {
	emailTemplates = make(tmplCache)

	rp := filepath.Join(conf.WorkDir, "assets", "templates", "email")
	fps, err := filepath.Glob(filepath.Join(rp, "*"))
	if err != nil {
		logger.Error(fmt.Sprintf("parsing email templates: %v", err), err)
		return
	}

	for _, fp := range fps {
		fname := filepath.Base(fp)
		ext := filepath.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := fname[:strings.LastIndex(fname, ".")]
		entry, ok := emailTemplates[name]
		if !ok {
			emailTemplates[name] = make(tmplCacheEntry)
			entry = emailTemplates[name]
		}
		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFiles(filepath.Join(rp, "_base.txt"), fp)
			if err != nil {
				logger.Error(fmt.Sprintf("parsing email template %s: %v", fname, err), err)
				continue
			}
			if conf.Debug || conf.TestMode {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry[ext] = tmpl
		} else {
			tmpl, err := htmltmpl.ParseFiles(filepath.Join(rp, "_base.gohtml"), fp)
			if err != nil {
				logger.Error(fmt.Sprintf("parsing email template %s: %v", fname, err), err)
				continue
			}
			if conf.Debug || conf.TestMode {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry[ext] = tmpl
		}
	}
}

func (m *EmailMessage) getContextData(conf *Config) ContextData {
	return ContextData{
		FrontendBaseURL: conf.FrontendBaseURL,
		Data:            m.TemplateData,
	}
}

func (m *EmailMessage) getTemplate(ext string) (interface{}, bool) {
	cache, ok := emailTemplates[m.TemplateName]
	if !ok {
		return nil, ok
	}
	tmplEntry, ok := cache[ext]
	return tmplEntry, ok
}

func (m *EmailMessage) renderText(conf *Config) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	} else if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := m.getTemplate(".txt")
	if !ok {
		return nil
	}
	tmpl, ok := tmplEntry.(*texttmpl.Template)
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, m.getContextData(conf)); err != nil {
		return err
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) renderHTML(conf *Config) error {
	if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := m.getTemplate(".gohtml")
	if !ok {
		return nil
	}
	tmpl, ok := tmplEntry.(*htmltmpl.Template)
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, m.getContextData(conf)); err != nil {
		return err
	}
	m.HTMLContent = buff.String()
	return nil
}

func (m *EmailMessage) Render(conf *Config) error {
	if err := m.renderText(conf); err != nil {
		return err
	}
	return m.renderHTML(conf)
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return (m.TextContent != "") || (m.HTMLContent != "") }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }
