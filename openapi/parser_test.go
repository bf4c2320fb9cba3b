package openapi

import "testing"

const petstoreV3 = `{
  "openapi": "3.0.0",
  "info": {"title": "pets", "version": "1.0"},
  "paths": {
    "/pets": {
      "get": {"responses": {"200": {"content": {"application/json": {"schema": {"type": "object", "properties": {"id": {"type": "string"}}}}}}}}
    },
    "/pets/{petId}": {
      "get": {
        "parameters": [{"name": "petId", "in": "path", "required": true, "schema": {"type": "string"}}],
        "responses": {"200": {"content": {"application/json": {"schema": {"type": "object", "properties": {"name": {"type": "string"}}}}}}}
      }
    }
  }
}`

const petstoreV2 = `{
  "swagger": "2.0",
  "info": {"title": "pets", "version": "1.0"},
  "paths": {
    "/pets": {
      "post": {
        "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"type": "object", "properties": {"name": {"type": "string"}}, "required": ["name"]}}],
        "responses": {"201": {"schema": {"type": "object", "properties": {"id": {"type": "string"}}}}}
      }
    }
  }
}`

func TestDetectVersion(t *testing.T) {
	doc, err := LoadDocument([]byte(petstoreV3))
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if doc.Version != "3" {
		t.Errorf("version = %q, want 3", doc.Version)
	}

	doc2, err := LoadDocument([]byte(petstoreV2))
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if doc2.Version != "2.0" {
		t.Errorf("version = %q, want 2.0", doc2.Version)
	}
}

func TestLoadDocumentUnknownVersion(t *testing.T) {
	_, err := LoadDocument([]byte(`{"paths": {}}`))
	if err != ErrUnknownSpecVersion {
		t.Errorf("err = %v, want ErrUnknownSpecVersion", err)
	}
}

func TestParseV3Endpoints(t *testing.T) {
	doc, err := LoadDocument([]byte(petstoreV3))
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	endpoints, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(endpoints) != 2 {
		t.Fatalf("len(endpoints) = %d, want 2", len(endpoints))
	}

	var petByID *Endpoint
	for i := range endpoints {
		if endpoints[i].Path == "/pets/{petId}" {
			petByID = &endpoints[i]
		}
	}
	if petByID == nil {
		t.Fatal("missing /pets/{petId} endpoint")
	}
	if len(petByID.RequiredPathParams()) != 1 {
		t.Errorf("RequiredPathParams = %d, want 1", len(petByID.RequiredPathParams()))
	}
}

func TestParseV2RequestBody(t *testing.T) {
	doc, err := LoadDocument([]byte(petstoreV2))
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	endpoints, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(endpoints) != 1 {
		t.Fatalf("len(endpoints) = %d, want 1", len(endpoints))
	}
	rb := endpoints[0].RequestBody
	if rb == nil {
		t.Fatal("RequestBody is nil")
	}
	if len(rb.Required) != 1 || rb.Required[0] != "name" {
		t.Errorf("Required = %v, want [name]", rb.Required)
	}
}

func TestBuildSpecInfo(t *testing.T) {
	doc, err := LoadDocument([]byte(petstoreV3))
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	endpoints, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	info := BuildSpecInfo(endpoints)
	if _, ok := info.Paths["/pets"]; !ok {
		t.Error("expected /pets in Paths")
	}
	if _, ok := info.Paths["/pets/{petId}"]; !ok {
		t.Error("expected /pets/{petId} in Paths")
	}
	if _, ok := info.StatusCodes["200"]; !ok {
		t.Error("expected 200 in StatusCodes")
	}
	if _, ok := info.ResponseFields["name"]; !ok {
		t.Error("expected name in ResponseFields")
	}
}

func TestDynamicParamNames(t *testing.T) {
	doc, err := LoadDocument([]byte(petstoreV3))
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	endpoints, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	names := DynamicParamNames(endpoints)
	if len(names) != 1 || names[0] != "petid" {
		t.Errorf("DynamicParamNames = %v, want [petid]", names)
	}
}
