// Package validation はリクエストボディをJSON Schemaで検証してからデコードする。
// スキーマはリクエスト構造体のタグから生成し、型ごとにコンパイル結果をキャッシュする。
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hitoshi/musicomply/internal/model"
)

// MaxBodyBytes はリクエストボディの上限サイズ。
const MaxBodyBytes = 1 << 20

// bodyField はボディ全体（ルート）に対するエラーのフィールド名。
const bodyField = "body"

// Validator はリクエスト型ごとにコンパイル済みスキーマを保持する。
type Validator struct {
	mu      sync.Mutex
	schemas map[reflect.Type]*compiledSchema
	printer *message.Printer
}

// compiledSchema はコンパイル済みスキーマと、型が宣言するプロパティ名の集合。
type compiledSchema struct {
	schema     *jschema.Schema
	properties map[string]struct{}
}

// New はValidatorを生成する。
func New() *Validator {
	return &Validator{
		schemas: make(map[reflect.Type]*compiledSchema),
		printer: message.NewPrinter(language.English),
	}
}

// Decode はbodyを読み取り、dstの型から生成したスキーマで検証してからdstへデコードする。
// dstは構造体へのポインタであること。
// デコードするのは検証済みの値のうち宣言済みプロパティと完全一致するキーのみで、
// 大文字小文字だけが異なるキーは未知のプロパティとして無視する。
// JSONとして解釈できない場合はINVALID_REQUEST、スキーマ違反はVALIDATION_FAILEDの*model.APIErrorを返す。
func (v *Validator) Decode(body io.Reader, dst any) error {
	data, err := io.ReadAll(io.LimitReader(body, MaxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	if len(data) > MaxBodyBytes {
		return model.NewInvalidRequestError("Request body too large")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return model.NewInvalidRequestError("Request body is required")
	}

	instance, err := jschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return model.NewInvalidRequestError("Invalid JSON body")
	}

	sch, err := v.schemaFor(reflect.TypeOf(dst))
	if err != nil {
		return err
	}

	if err := sch.schema.Validate(instance); err != nil {
		var ve *jschema.ValidationError
		if errors.As(err, &ve) {
			return model.NewValidationError(v.fieldErrors(ve))
		}
		return fmt.Errorf("failed to validate request body: %w", err)
	}

	if obj, ok := instance.(map[string]any); ok {
		declared := make(map[string]any, len(obj))
		for key, val := range obj {
			if _, ok := sch.properties[key]; ok {
				declared[key] = val
			}
		}
		instance = declared
	}
	validated, err := json.Marshal(instance)
	if err != nil {
		return fmt.Errorf("failed to re-encode request body: %w", err)
	}
	if err := json.Unmarshal(validated, dst); err != nil {
		return model.NewInvalidRequestError("Invalid JSON body")
	}
	return nil
}

// schemaFor は型に対応するコンパイル済みスキーマを返す。未生成なら生成してキャッシュする。
func (v *Validator) schemaFor(t reflect.Type) (*compiledSchema, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if sch, ok := v.schemas[t]; ok {
		return sch, nil
	}
	sch, err := compile(t)
	if err != nil {
		return nil, err
	}
	v.schemas[t] = sch
	return sch, nil
}

// propertyNames はスキーマのトップレベルで宣言されたプロパティ名を返す。
func propertyNames(s *jsonschema.Schema) map[string]struct{} {
	names := make(map[string]struct{})
	if s.Properties == nil {
		return names
	}
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		names[pair.Key] = struct{}{}
	}
	return names
}

// Schema は型から生成したJSON Schemaを返す。ドキュメント出力やテストで使用する。
func Schema(t reflect.Type) *jsonschema.Schema {
	r := jsonschema.Reflector{
		DoNotReference:             true,
		Anonymous:                  true,
		AllowAdditionalProperties:  true,
		RequiredFromJSONSchemaTags: true,
	}
	return r.ReflectFromType(t)
}

func compile(t reflect.Type) (*compiledSchema, error) {
	reflected := Schema(t)
	raw, err := json.Marshal(reflected)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema for %s: %w", t, err)
	}
	doc, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema for %s: %w", t, err)
	}

	url := "mem:///" + t.PkgPath() + "/" + t.Name() + ".json"
	c := jschema.NewCompiler()
	c.AssertFormat()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource for %s: %w", t, err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema for %s: %w", t, err)
	}
	return &compiledSchema{schema: sch, properties: propertyNames(reflected)}, nil
}

// fieldErrors は検証エラーの末端をフィールド名→メッセージに変換する。
// 同じフィールドに複数のエラーがある場合は最初のものを採用する。
func (v *Validator) fieldErrors(root *jschema.ValidationError) map[string]string {
	out := make(map[string]string)

	var walk func(ve *jschema.ValidationError)
	walk = func(ve *jschema.ValidationError) {
		if len(ve.Causes) > 0 {
			for _, c := range ve.Causes {
				walk(c)
			}
			return
		}

		if req, ok := ve.ErrorKind.(*kind.Required); ok {
			for _, name := range req.Missing {
				field := fieldName(append(append([]string{}, ve.InstanceLocation...), name))
				if _, exists := out[field]; !exists {
					out[field] = "is required"
				}
			}
			return
		}

		field := fieldName(ve.InstanceLocation)
		if _, exists := out[field]; !exists {
			out[field] = ve.ErrorKind.LocalizedString(v.printer)
		}
	}
	walk(root)

	if len(out) == 0 {
		out[bodyField] = root.ErrorKind.LocalizedString(v.printer)
	}
	return out
}

func fieldName(location []string) string {
	if len(location) == 0 {
		return bodyField
	}
	return strings.Join(location, ".")
}
