package testutils

import (
	"encoding/json"
	"fmt"
)

// ValidScoreJSON is a well-formed judgment response.
const ValidScoreJSON = `{
  "CT": {"score": 72, "explanation": "Experiencia sólida en juzgados de distrito."},
  "IE": {"score": 65, "explanation": "Sin conflictos de interés declarados."},
  "EJ": {"score": 58, "explanation": "Enfoque garantista con poca evidencia publicada."},
  "CR": {"score": 70, "explanation": "Resolución oportuna de asuntos complejos."},
  "SS": {"score": 81, "explanation": "Trabajo comunitario documentado."},
  "strengths": ["Trayectoria judicial", "Formación continua", "Propuestas claras"],
  "improvement_areas": ["Poca producción académica", "Visión general", "Sin métricas de desempeño"]
}`

// ScoreJSON renders a response with the given dimension scores in
// CT, IE, EJ, CR, SS order and fixed list fields.
func ScoreJSON(ct, ie, ej, cr, ss int) string {
	dims := map[string]any{}
	for k, v := range map[string]int{"CT": ct, "IE": ie, "EJ": ej, "CR": cr, "SS": ss} {
		dims[k] = map[string]any{"score": v, "explanation": fmt.Sprintf("%s evaluado", k)}
	}
	dims["strengths"] = []string{"a", "b", "c"}
	dims["improvement_areas"] = []string{"x", "y", "z"}
	data, err := json.Marshal(dims)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// FencedJSON wraps body in a markdown json code fence.
func FencedJSON(body string) string {
	return "```json\n" + body + "\n```"
}
