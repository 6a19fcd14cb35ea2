package quiz

// FormatInstructions describes the expected JSON shape to the model.
const FormatInstructions = `The output must be a single JSON object that conforms to this JSON schema:
{
  "type": "object",
  "required": ["data"],
  "properties": {
    "data": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["question_text", "answers"],
        "properties": {
          "question_text": {"type": "string", "description": "The question text"},
          "explanation": {"type": "string", "description": "Explanation for the correct answer"},
          "point": {"type": "number", "default": 1.0, "description": "Point value for the question"},
          "question_type": {"type": "string", "enum": ["SINGLE_CHOICE", "MULTIPLE_CHOICE", "TRUE_FALSE"], "default": "SINGLE_CHOICE"},
          "answers": {
            "type": "array",
            "minItems": 2,
            "items": {
              "type": "object",
              "required": ["answer_text", "is_correct"],
              "properties": {
                "answer_text": {"type": "string"},
                "is_correct": {"type": "boolean"}
              }
            }
          }
        }
      }
    }
  }
}
SINGLE_CHOICE has exactly one correct answer. MULTIPLE_CHOICE has at least one correct answer.
TRUE_FALSE has exactly two answers ("True" and "False" in the question's language) and one is correct.
Return only the JSON object, without markdown fences or commentary.`
