package dictionary

import (
	"bytes"
	"encoding/json"
	"html/template"
	"os"
	"sort"

	"github.com/leonid6372/upbit-paper/pkg/format"
	"github.com/leonid6372/upbit-paper/pkg/log"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const DefaultLanguage = "en"

type Dictionary struct {
	dictionary map[string]map[string]string // map[language_code]map[key]value

	digitSeparator   string
	decimalSeparator string
}

func New(path string) (*Dictionary, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var dictionary map[string]map[string]string
	if err := json.Unmarshal(file, &dictionary); err != nil {
		return nil, err
	}

	return &Dictionary{
		dictionary:       dictionary,
		digitSeparator:   " ",
		decimalSeparator: ".",
	}, nil
}

func (d *Dictionary) Languages() []string {
	langs := make([]string, 0, len(d.dictionary))

	for lang := range d.dictionary {
		langs = append(langs, lang)
	}

	sort.Strings(langs)

	return langs
}

func (d *Dictionary) Has(lang string) bool {
	_, ok := d.dictionary[lang]
	return ok
}

// Text renders the template stored under key. Unknown languages fall back to DefaultLanguage.
func (d *Dictionary) Text(lang, key string, values ...map[string]any) string {
	text, ok := d.dictionary[lang][key]
	if !ok {
		text, ok = d.dictionary[DefaultLanguage][key]
	}

	if !ok {
		log.Error("Text: value not found", zap.String("lang", lang), zap.String("key", key))
		return ""
	}

	tmpl, err := template.New(key).Parse(text)
	if err != nil {
		return text
	}

	valuesMap := make(map[string]any)
	if len(values) > 0 {
		// format numeric types in values
		for key, value := range values[0] {
			switch v := value.(type) {
			case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
				valuesMap[key] = format.PrettyNumber(v, d.digitSeparator, d.decimalSeparator, false)
			case decimal.Decimal:
				valuesMap[key] = format.PrettyNumber(v, d.digitSeparator, d.decimalSeparator, !v.IsInteger() && v.Abs().LessThan(decimal.NewFromInt(1)))
			default:
				valuesMap[key] = value
			}
		}
	}

	byteText := new(bytes.Buffer)
	if err = tmpl.Execute(byteText, valuesMap); err != nil {
		log.Error("Text: failed to execute template", zap.Error(err))
		return text
	}

	return byteText.String()
}
