// Package solution reads Visual Studio solutions. It lists the projects of
// a .sln file, parses each MSBuild project file and reports them as
// model.RawProject values with their project references left unresolved.
package solution
