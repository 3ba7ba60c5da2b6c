package rbac

// builtinRoleDefinitionIDs maps well-known role names to their built-in role
// definition GUIDs, saving a role-definitions query for the common grants.
var builtinRoleDefinitionIDs = map[string]string{
	"Reader":              "acdd72a7-3385-48ef-bd42-f606fba81ae7",
	"Contributor":         "b24988ac-6180-42a0-ab88-20f7382dd24c",
	"Network Contributor": "4d97b98b-1d4f-4787-a291-c67834d212e7",
	"AcrPull":             "7f951dda-4ed3-4680-a7ca-43fe172d538d",
	"AcrPush":             "8311e382-0749-4cb8-b61a-304f252e45ec",
	"Azure Kubernetes Service RBAC Cluster Admin": "b1ff04bb-8a4e-4dc4-8eb5-8693973ce19b",
	"Azure Kubernetes Service Cluster Admin Role": "0ab0b1a8-8aac-4efd-b8c2-3ee1fb270be8",
}
