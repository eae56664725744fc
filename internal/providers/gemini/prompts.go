package gemini

import (
	"fmt"
	"strings"
)

const scenarioPrompt = "Generate a creative, highly detailed, and visually distinct scenario for a time travel selfie. " +
	"It can be a famous historical event, a specific era in history, or a futuristic sci-fi setting. " +
	"Return ONLY a JSON object with keys: 'name' (short title), 'description' (short location/year), and " +
	"'promptSuffix' (detailed visual description of the scene including action, expression, lighting, and film style). " +
	"Do not use markdown formatting."

const analysisPrompt = "Analyze this historical recreation. Identify the era, the historical accuracy of the clothing " +
	"and setting, and describe the interactions taking place. Rate the realism."

// emptyAnalysis is returned when the model answers without text.
const emptyAnalysis = "Analysis could not be generated."

func buildRenderPrompt(directive string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: Create a hyper-realistic photograph placing the person visible in this image into the following scene: %s.\n\n", strings.TrimSpace(directive))
	b.WriteString("CRITICAL INPUT CONTEXT:\n")
	b.WriteString("- The input image may be a CROP of a larger photo. Focus on the primary subject visible in the crop.\n")
	b.WriteString("- If there are other people partially visible in the input crop, ignore them; focus on the main face.\n\n")
	b.WriteString("CRITICAL INSTRUCTIONS FOR REALISM & BLENDING:\n")
	b.WriteString("1. Dynamic Expression Adaptation: The subject's facial expression MUST change to match the emotion of the scene (e.g., screaming, laughing, serious, scared). Do NOT retain the static expression from the original selfie if it doesn't fit the context.\n")
	b.WriteString("2. Social Interaction: The subject must be interacting with the environment or other people in the scene (looking at them, touching them, talking to them), not just pasted on top of a background.\n")
	b.WriteString("3. Photographic Integration: DO NOT simply paste the face. RE-RENDER the face to match the film grain, lighting direction, shadow hardness, and color grading of the specific era. The skin texture must look like it was photographed on the film stock of that time.\n")
	b.WriteString("4. Identity Preservation: While adapting the expression and lighting, preserve the core facial features (bone structure, eye shape, nose, mouth) so the person is undeniably recognizable as the source.\n")
	b.WriteString("5. No Cut-and-Paste Look: Ensure the neck and jawline blend perfectly with the period clothing. No sharp edges or mismatched lighting.\n\n")
	b.WriteString("Output: A single, high-quality, photorealistic image.")
	return b.String()
}

func buildEditPrompt(instruction string) string {
	return fmt.Sprintf("Edit this image: %s. Maintain the historical realism and the person's identity. Ensure the changes blend naturally into the scene.", strings.TrimSpace(instruction))
}

func buildVideoPrompt(directive string) string {
	return fmt.Sprintf("Cinematic motion: %s. The character comes to life with subtle natural movements, breathing, looking around, and interacting with the environment. High quality, smooth motion.", strings.TrimSpace(directive))
}
