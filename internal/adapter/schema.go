package adapter

// ManifestSchema is the JSON Schema (Draft 2020-12) of results.json, the
// analyzer output manifest consumed by eval.
const ManifestSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://tcoracle.dev/results.schema.json",
  "title": "Analyzer results manifest",
  "type": "object",
  "required": ["results"],
  "properties": {
    "timestamp": { "type": "string" },
    "checkers_used": {
      "type": "array",
      "items": { "type": "string" }
    },
    "results": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["filename", "outputs"],
        "properties": {
          "filename": { "type": "string", "minLength": 1 },
          "filepath": { "type": "string" },
          "outputs": {
            "type": "object",
            "additionalProperties": { "type": "string" }
          }
        }
      }
    }
  }
}`

// ReportSchema is the JSON Schema (Draft 2020-12) of evaluation_tiered.json.
const ReportSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://tcoracle.dev/evaluation-tiered.schema.json",
  "title": "Tiered evaluation report",
  "type": "object",
  "required": ["method", "run_id", "max_level", "level_distribution", "summary", "results"],
  "properties": {
    "method": { "const": "tiered" },
    "run_id": { "type": "string" },
    "generated_at": { "type": "string" },
    "max_level": { "type": "integer", "minimum": 1, "maximum": 3 },
    "level_distribution": {
      "type": "object",
      "additionalProperties": { "type": "integer", "minimum": 0 }
    },
    "summary": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["correct", "incorrect", "uncertain"],
        "properties": {
          "correct": { "type": "integer" },
          "incorrect": { "type": "integer" },
          "uncertain": { "type": "integer" }
        }
      }
    },
    "skipped": {
      "type": ["array", "null"],
      "items": { "type": "string" }
    },
    "results": {
      "type": "array",
      "items": { "$ref": "#/$defs/Result" }
    }
  },
  "$defs": {
    "Bug": {
      "type": "object",
      "required": ["line", "type", "msg", "source", "confidence"],
      "properties": {
        "line": { "type": "integer", "minimum": 0 },
        "type": {
          "enum": ["TypeMismatch", "MissingKey", "MissingAttribute", "EnforcementViolation", "MutationKilled"]
        },
        "msg": { "type": "string" },
        "source": {
          "enum": ["direct-execution", "enforcement", "static-pattern", "coverage-guided", "mutation"]
        },
        "confidence": { "type": "number", "minimum": 0, "maximum": 1 }
      }
    },
    "Verdict": {
      "type": "object",
      "required": ["verdict", "reason", "confidence"],
      "properties": {
        "verdict": { "enum": ["CORRECT", "INCORRECT", "UNCERTAIN"] },
        "reason": { "type": "string" },
        "confidence": { "type": "number" },
        "note": { "type": "string" },
        "bugs_missed": {
          "type": "array",
          "maxItems": 3,
          "items": {
            "type": "object",
            "required": ["line", "type", "source"]
          }
        }
      }
    },
    "Result": {
      "type": "object",
      "required": ["filename", "level_reached", "level1_bugs", "level2_bugs", "level3_bugs", "verdicts"],
      "properties": {
        "filename": { "type": "string" },
        "level_reached": { "type": "integer", "minimum": 1, "maximum": 3 },
        "level1_bugs": { "type": "array", "items": { "$ref": "#/$defs/Bug" } },
        "level2_bugs": { "type": "array", "items": { "$ref": "#/$defs/Bug" } },
        "level3_bugs": { "type": "array", "items": { "$ref": "#/$defs/Bug" } },
        "coverage_before": { "type": "number" },
        "coverage_after": { "type": "number" },
        "mutations_tested": { "type": "integer", "minimum": 0 },
        "mutations_killed": { "type": "integer", "minimum": 0 },
        "verdicts": {
          "type": "object",
          "additionalProperties": { "$ref": "#/$defs/Verdict" }
        }
      }
    }
  }
}`
