package artifact

import "fmt"

// DeployCommands is shown verbatim next to every bundle.
const DeployCommands = `
# 1. Build and Push to Artifact Registry
gcloud builds submit --config cloudbuild.yaml .

# 2. Deploy using the Service Manifest
gcloud run services replace service.yaml
`

const DefaultRegion = "us-central1"

// DeployScript renders the gcloud commands for a direct source deploy of a
// single service. It is independent of any generated bundle.
func DeployScript(projectID, serviceName, region string) string {
	if region == "" {
		region = DefaultRegion
	}
	image := fmt.Sprintf("gcr.io/%s/%s", projectID, serviceName)
	return fmt.Sprintf(`# 1. Set the Project
gcloud config set project %[1]s

# 2. Build the Container (Cloud Build)
gcloud builds submit --tag %[2]s .

# 3. Deploy to Cloud Run (Serverless)
gcloud run deploy %[3]s \
  --image %[2]s \
  --platform managed \
  --region %[4]s \
  --allow-unauthenticated

echo "Deployment complete."
`, projectID, image, serviceName, region)
}
