// Package teamcity implements pipeline.Provisioner over the TeamCity REST API.
//
// Layers become sub-projects of the target project and every solution
// project becomes a build configuration ("build type") inside its layer.
// Requests and responses are JSON, except for single settings that the
// server accepts as plain text.
package teamcity
