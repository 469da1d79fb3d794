// Package workbench defines the capability contract a plug-in feature
// type must satisfy to be stored in a Cambium document, and the registry
// workbenches use to declare themselves, their tools, and their commands.
package workbench
