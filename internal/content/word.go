package content

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Translation struct {
	Pos       string `json:"pos,omitempty"`
	TranCn    string `json:"tranCn"`
	TranOther string `json:"tranOther,omitempty"`
}

type Sentence struct {
	Content string `json:"sContent"`
	Cn      string `json:"sCn,omitempty"`
}

type Synonym struct {
	Pos   string   `json:"pos,omitempty"`
	Tran  string   `json:"tran,omitempty"`
	Words []string `json:"hwds"`
}

type Phrase struct {
	Phrase  string `json:"phrase"`
	Meaning string `json:"meaning,omitempty"`
}

type RelatedWord struct {
	HeadWord string `json:"headWord"`
	TranCn   string `json:"tranCn,omitempty"`
}

type RelatedGroup struct {
	Pos   string        `json:"pos,omitempty"`
	Words []RelatedWord `json:"words"`
}

// WordDetail is a word as shown to learners, whatever shape it was imported in.
type WordDetail struct {
	WordRank  int            `json:"wordRank"`
	WordHead  string         `json:"wordHead"`
	UKPhone   string         `json:"ukphone,omitempty"`
	USPhone   string         `json:"usphone,omitempty"`
	UKSpeech  string         `json:"ukspeech,omitempty"`
	USSpeech  string         `json:"usspeech,omitempty"`
	Trans     []Translation  `json:"trans"`
	Synonyms  []Synonym      `json:"syno,omitempty"`
	Phrases   []Phrase       `json:"phrase,omitempty"`
	Related   []RelatedGroup `json:"relWord,omitempty"`
	Sentences []Sentence     `json:"sentences,omitempty"`
}

// Schema is the layout of a stored word record.
type Schema int

const (
	// SchemaFlat keeps every field at the top level of the record.
	SchemaFlat Schema = iota
	// SchemaNested wraps the fields in a "word" object, optionally with a
	// further "content" object inside it, as dictionary dumps do.
	SchemaNested
)

func (s Schema) String() string {
	if s == SchemaNested {
		return "nested"
	}
	return "flat"
}

// DetectSchema decides the layout of a decoded record.
func DetectSchema(record map[string]any) Schema {
	if _, ok := record["word"].(map[string]any); ok {
		return SchemaNested
	}
	return SchemaFlat
}

// ParseWord decodes a stored record and normalizes it. fallbackHead is used
// when the record names no head word. ok is false when the record cannot be
// shown at all.
func ParseWord(raw []byte, fallbackHead string, rank int) (WordDetail, bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return WordDetail{}, false, nil
	}

	var record map[string]any
	if err := json.Unmarshal(raw, &record); err != nil {
		// Some dumps store the record as a JSON string.
		var inner string
		if json.Unmarshal(raw, &inner) != nil || json.Unmarshal([]byte(inner), &record) != nil {
			return WordDetail{}, false, fmt.Errorf("failed to parse word content: %w", err)
		}
	}
	if record == nil {
		return WordDetail{}, false, nil
	}

	detail, ok := Normalize(record, fallbackHead)
	if !ok {
		return WordDetail{}, false, nil
	}
	detail.WordRank = rank
	return detail, true, nil
}

// Normalize translates a decoded record into a WordDetail.
func Normalize(record map[string]any, fallbackHead string) (WordDetail, bool) {
	switch DetectSchema(record) {
	case SchemaNested:
		return normalizeNested(record, fallbackHead)
	default:
		return normalizeLayers(layers{record}, fallbackHead)
	}
}

func normalizeNested(record map[string]any, fallbackHead string) (WordDetail, bool) {
	word := record["word"].(map[string]any)
	if inner, ok := word["content"].(map[string]any); ok {
		return normalizeLayers(layers{inner, word, record}, fallbackHead)
	}
	return normalizeLayers(layers{word, record}, fallbackHead)
}

func normalizeLayers(l layers, fallbackHead string) (WordDetail, bool) {
	head := str(l.get("wordHead"))
	if head == "" {
		head = fallbackHead
	}
	if head == "" {
		return WordDetail{}, false
	}

	trans := l.get("trans")
	if trans == nil {
		trans = l.get("translation")
	}

	return WordDetail{
		WordRank:  intOf(l.get("wordRank")),
		WordHead:  head,
		UKPhone:   str(l.first("ukphone", "ukPhone")),
		USPhone:   str(l.first("usphone", "usPhone")),
		UKSpeech:  str(l.get("ukspeech")),
		USSpeech:  str(l.get("usspeech")),
		Trans:     translations(trans),
		Synonyms:  synonyms(unwrap(l.get("syno"), "synos")),
		Phrases:   phrases(unwrap(l.get("phrase"), "phrases")),
		Related:   relatedGroups(unwrap(l.get("relWord"), "rels")),
		Sentences: sentences(l.sentenceList()),
	}, true
}

// layers looks a key up in each map in turn.
type layers []map[string]any

func (l layers) get(key string) any {
	for _, m := range l {
		if v, ok := m[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

// first returns the first key present in any layer, trying every key in a
// layer before moving to the next.
func (l layers) first(keys ...string) any {
	for _, m := range l {
		if v := pick(m, keys...); v != nil {
			return v
		}
	}
	return nil
}

func (l layers) sentenceList() any {
	for _, m := range l {
		if s, ok := m["sentence"].(map[string]any); ok && s["sentences"] != nil {
			return s["sentences"]
		}
		if v := m["sentences"]; v != nil {
			return v
		}
	}
	return nil
}

func pick(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// unwrap returns v[key] when v is an object holding key, else v.
func unwrap(v any, key string) any {
	if m, ok := v.(map[string]any); ok {
		if inner, ok := m[key]; ok && inner != nil {
			return inner
		}
	}
	return v
}

// objects turns a single object or a list into a list of objects.
func objects(v any) []map[string]any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	case map[string]any:
		return []map[string]any{t}
	}
	return nil
}

func list(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	}
	return []any{v}
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprint(t)
	}
	return ""
}

func intOf(v any) int {
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return 0
}

func translations(v any) []Translation {
	out := []Translation{}
	for _, item := range objects(v) {
		pos := str(pick(item, "pos", "posEn", "posCn", "partOfSpeech", "partOfSpeechEn", "partOfSpeechCn"))
		tranCn := str(pick(item, "tranCn", "tranCN", "tran", "descCn", "descCN", "meaning"))
		tranOther := str(pick(item, "tranOther", "tranEn", "tranEN", "descOther", "desc", "definition"))
		if tranCn == "" && tranOther == "" {
			continue
		}
		if tranCn == "" {
			tranCn = tranOther
		}
		t := Translation{TranCn: tranCn}
		if strings.TrimSpace(pos) != "" {
			t.Pos = pos
		}
		if strings.TrimSpace(tranOther) != "" {
			t.TranOther = tranOther
		}
		out = append(out, t)
	}
	return out
}

func synonyms(v any) []Synonym {
	var out []Synonym
	for _, item := range objects(v) {
		words := []string{}
		for _, w := range list(pick(item, "hwds", "words")) {
			var s string
			switch t := w.(type) {
			case string:
				s = t
			case map[string]any:
				s = str(pick(t, "w", "word"))
			}
			if strings.TrimSpace(s) != "" {
				words = append(words, s)
			}
		}
		tran := str(pick(item, "tran", "tranCn", "meaning"))
		if len(words) == 0 && tran == "" {
			continue
		}
		out = append(out, Synonym{
			Pos:   str(pick(item, "pos", "posCn", "posEn")),
			Tran:  tran,
			Words: words,
		})
	}
	return out
}

func phrases(v any) []Phrase {
	var out []Phrase
	for _, item := range objects(v) {
		phrase := str(pick(item, "pContent", "phrase", "content"))
		meaning := str(pick(item, "pCn", "meaning", "translation"))
		if phrase == "" && meaning == "" {
			continue
		}
		out = append(out, Phrase{Phrase: phrase, Meaning: meaning})
	}
	return out
}

func relatedGroups(v any) []RelatedGroup {
	var out []RelatedGroup
	for _, item := range objects(v) {
		var words []RelatedWord
		for _, w := range objects(item["words"]) {
			head := str(pick(w, "hwd", "headWord", "word", "content"))
			tran := str(pick(w, "tran", "tranCn", "meaning"))
			if head == "" && tran == "" {
				continue
			}
			words = append(words, RelatedWord{HeadWord: head, TranCn: tran})
		}
		if len(words) == 0 {
			continue
		}
		out = append(out, RelatedGroup{
			Pos:   str(pick(item, "pos", "posCn", "posEn")),
			Words: words,
		})
	}
	return out
}

func sentences(v any) []Sentence {
	var out []Sentence
	for _, item := range objects(v) {
		content := str(pick(item, "sContent", "content", "en", "example"))
		cn := str(pick(item, "sCn", "cn", "translation"))
		if content == "" && cn == "" {
			continue
		}
		out = append(out, Sentence{Content: content, Cn: cn})
	}
	return out
}
