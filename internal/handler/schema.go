package handler

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"storefront/internal/model"

	"github.com/xeipuuv/gojsonschema"
)

const maxRequestBody = 64 << 10

const checkoutSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["items"],
  "properties": {
    "items": {
      "type": "array",
      "minItems": 1,
      "maxItems": 100,
      "items": {
        "type": "object",
        "required": ["id", "quantity"],
        "properties": {
          "id": { "type": "string", "pattern": "^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$" },
          "quantity": { "type": "integer", "minimum": 1, "maximum": 2147483647 }
        }
      }
    },
    "email": { "type": "string", "format": "email" }
  }
}`

const uploadSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["filename", "contentType", "size"],
  "properties": {
    "filename": { "type": "string", "minLength": 1, "maxLength": 255 },
    "contentType": { "type": "string", "minLength": 1 },
    "size": { "type": "integer", "minimum": 1 }
  },
  "additionalProperties": false
}`

// Image entries are object keys issued by the upload endpoint.
const productSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "slug", "price"],
  "properties": {
    "name": { "type": "string", "minLength": 1, "maxLength": 200 },
    "slug": { "type": "string", "minLength": 1, "maxLength": 200 },
    "description": { "type": ["string", "null"], "maxLength": 5000 },
    "price": { "type": "number", "minimum": 0 },
    "currency": { "type": "string", "pattern": "^[A-Za-z]{3}$" },
    "category": { "type": ["string", "null"], "maxLength": 100 },
    "stockQuantity": { "type": "integer", "minimum": 0, "maximum": 2147483647 },
    "isActive": { "type": "boolean" },
    "imageUrls": {
      "type": "array",
      "maxItems": 20,
      "items": { "type": "string", "minLength": 1, "maxLength": 512, "pattern": "^[A-Za-z0-9._/-]+$" }
    }
  },
  "additionalProperties": false
}`

var (
	checkoutSchemaLoader = gojsonschema.NewStringLoader(checkoutSchema)
	uploadSchemaLoader   = gojsonschema.NewStringLoader(uploadSchema)
	productSchemaLoader  = gojsonschema.NewStringLoader(productSchema)
)

// readBody reads at most limit bytes of the request body.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		return nil, model.InvalidRequest("request body too large or unreadable")
	}
	return body, nil
}

// validateJSONSchema checks body against schema and reports every violation.
func validateJSONSchema(schema gojsonschema.JSONLoader, body []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return model.InvalidRequest("malformed JSON body")
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
		}
		return model.InvalidRequest("%s", strings.Join(msgs, "; "))
	}
	return nil
}
