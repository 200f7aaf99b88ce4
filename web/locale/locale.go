// Package locale loads the UI translations and picks a localizer per request.
package locale

import (
	"io/fs"
	"strings"

	"github.com/postscript-blog/postscript/logger"

	"github.com/gin-gonic/gin"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

const (
	// ContextKey is where LocalizerMiddleware stores the request localizer.
	ContextKey = "localizer"
	langCookie = "lang"
)

var i18nBundle *i18n.Bundle

// InitLocalizer parses every translation file under "translation" in i18nFS.
func InitLocalizer(i18nFS fs.FS) error {
	bundle := i18n.NewBundle(language.MustParse("en-US"))
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	if err := parseTranslationFiles(i18nFS, bundle); err != nil {
		return err
	}
	i18nBundle = bundle
	return nil
}

// Languages lists the tags of the loaded translations.
func Languages() []string {
	if i18nBundle == nil {
		return nil
	}
	tags := i18nBundle.LanguageTags()
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.String())
	}
	return out
}

func createTemplateData(params []string, separator ...string) map[string]any {
	sep := "=="
	if len(separator) > 0 {
		sep = separator[0]
	}

	templateData := make(map[string]any)
	for _, param := range params {
		parts := strings.SplitN(param, sep, 2)
		if len(parts) == 2 {
			templateData[parts[0]] = parts[1]
		}
	}
	return templateData
}

// I18n translates key with params in "name==value" form. A nil localizer or a missing
// message yields the key itself.
func I18n(localizer *i18n.Localizer, key string, params ...string) string {
	if localizer == nil {
		return key
	}
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: createTemplateData(params),
	})
	if err != nil {
		logger.Debugf("Failed to localize message %s: %v", key, err)
		return key
	}
	return msg
}

// LocalizerMiddleware picks the language from the "lang" cookie, then Accept-Language.
func LocalizerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if i18nBundle == nil {
			c.Next()
			return
		}
		var lang string
		if cookie, err := c.Request.Cookie(langCookie); err == nil {
			lang = cookie.Value
		}
		c.Set(ContextKey, i18n.NewLocalizer(i18nBundle, lang, c.GetHeader("Accept-Language")))
		c.Next()
	}
}

// FromContext returns the request localizer set by LocalizerMiddleware.
func FromContext(c *gin.Context) *i18n.Localizer {
	if v, ok := c.Get(ContextKey); ok {
		if l, ok := v.(*i18n.Localizer); ok {
			return l
		}
	}
	return nil
}

func parseTranslationFiles(i18nFS fs.FS, bundle *i18n.Bundle) error {
	return fs.WalkDir(i18nFS, "translation",
		func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			data, err := fs.ReadFile(i18nFS, path)
			if err != nil {
				return err
			}
			_, err = bundle.ParseMessageFileBytes(data, path)
			return err
		})
}
