package synth

import (
	"fmt"

	"legacylift/internal/artifact"
)

// SystemInstruction configures the model for every generation call.
const SystemInstruction = `
You are a Google Cloud DevOps Expert. Your goal is to modernize legacy applications for Google Cloud Run.
Rules for your output:
1. OUTPUT ONLY THE RAW CODE for the requested file.
2. DO NOT include any conversational text, explanations, or markdown code block backticks.
3. Ensure the code is production-ready and optimized for Google Cloud.
4. For Dockerfiles: Use lightweight base images and expose port 8080.
5. For cloudbuild.yaml: Include steps to build, push, and deploy.
6. For service.yaml: Use the Knative serving.knative.dev/v1 API.
`

var instructions = map[artifact.Kind]string{
	artifact.KindDockerfile: "Generate a production-ready Dockerfile for this context: ",
	artifact.KindCloudBuild: "Generate a cloudbuild.yaml for Google Cloud Build for this context: ",
	artifact.KindService:    "Generate a Cloud Run service.yaml manifest for this context: ",
}

// Prompt builds the request for one artifact kind. Prompts for different
// kinds share the embedded context verbatim and differ only in the prefix.
func Prompt(kind artifact.Kind, repoContext string) (string, error) {
	prefix, ok := instructions[kind]
	if !ok {
		return "", fmt.Errorf("no prompt for artifact kind %q", kind)
	}
	return prefix + repoContext, nil
}
