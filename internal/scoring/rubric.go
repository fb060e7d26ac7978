// Package scoring turns candidate profiles into validated evaluation
// scores by prompting an external judgment service, recovering and
// validating its JSON output, and retrying within a fixed attempt budget.
package scoring

import (
	"bytes"
	"fmt"
	"text/template"
)

// rubricText is the fixed instruction block sent with every request.
// Profile fields are interpolated verbatim after it.
const rubricText = `Eres un jurista experto en selección de jueces. Analiza el siguiente perfil de candidato judicial y responde SOLO en el siguiente formato JSON, sin ningún texto adicional antes o después:
{
  "CT": {"score": int, "explanation": str},
  "IE": {"score": int, "explanation": str},
  "EJ": {"score": int, "explanation": str},
  "CR": {"score": int, "explanation": str},
  "SS": {"score": int, "explanation": str},
  "strengths": [str, ...],
  "improvement_areas": [str, ...]
}

Dimensiones: CT = Competencia Técnica, IE = Independencia y Ética, EJ = Enfoque Jurídico, CR = Capacidad Resolutiva, SS = Sensibilidad Social.

Instrucciones estrictas para la evaluación:
- Devuelve SOLO el JSON solicitado, sin texto adicional, sin comentarios, sin markdown, sin encabezados, sin explicación fuera del JSON.
- Los campos "score" deben ser enteros entre 0 y 100. Si no hay suficiente información, asigna un score bajo.
- Si el JSON no es válido o falta algún campo, tu respuesta será descartada.
- Calificaciones entre 90 y 99 solo si el candidato demuestra logros sobresalientes, experiencia comprobada y aportaciones relevantes.
- Calificaciones entre 70 y 89 para perfiles sólidos pero con áreas de mejora, experiencia incompleta o logros no excepcionales.
- Calificaciones entre 40 y 69 para perfiles promedio, con experiencia limitada, logros poco claros o faltantes de información relevante.
- Calificaciones menores a 40 si hay deficiencias claras, falta de experiencia, información insuficiente o dudas importantes.
- No sobrecalifiques: la mayoría de los candidatos deben recibir puntajes en el rango medio o bajo, a menos que haya evidencia contundente de excelencia.
- Justifica explícitamente cualquier calificación mayor a 90, señalando la evidencia concreta que la respalda.
- Para cada dimensión, justifica la calificación en 10-20 palabras, usando evidencia específica del perfil.
- Escribe entre 3 y 5 fortalezas en "strengths" y entre 3 y 5 áreas de oportunidad en "improvement_areas".
- Sé riguroso, objetivo y consistente. No inventes información que no esté en el perfil.
`

const profileText = `
Perfil del candidato:
Nombre: {{.Name}}
Sexo: {{.Gender}}
Categoría: {{.Category}}
Estado: {{.State}}
Especialidad: {{.Specialty}}
Descripción del trabajo previo: {{.PriorWork}}
Descripción del candidato: {{.Description}}
Visión jurisdiccional: {{.JurisdictionalVision}}
Visión de impartición de justicia: {{.JusticeVision}}
Propuesta 1: {{.Proposal1}}
Propuesta 2: {{.Proposal2}}
Propuesta 3: {{.Proposal3}}
CV: {{.CV}}
`

var profileTemplate = template.Must(template.New("profile").Parse(profileText))

// Rubric returns the fixed instruction block.
func Rubric() string { return rubricText }

// BuildPrompt renders the rubric followed by the profile fields.
func BuildPrompt(p Profile) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(rubricText)
	if err := profileTemplate.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("failed to render profile for %q: %w", p.Folio, err)
	}
	return buf.String(), nil
}
