package solution

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	coreGUID = "11111111-1111-1111-1111-111111111111"
	appGUID  = "22222222-2222-2222-2222-222222222222"
	libGUID  = "33333333-3333-3333-3333-333333333333"
	csharp   = "FAE04EC0-301F-11D3-BF4B-00C04F79EFBC"
)

const bigSln = "\ufeff" + `
Microsoft Visual Studio Solution File, Format Version 12.00
# Visual Studio 15
Project("{` + FolderTypeGUID + `}") = "Libraries", "Libraries", "{44444444-4444-4444-4444-444444444444}"
EndProject
Project("{` + csharp + `}") = "Core", "src\Core\Core.csproj", "{` + coreGUID + `}"
EndProject
Project("{` + csharp + `}") = "Removed", "src\Removed\Removed.csproj", "{55555555-5555-5555-5555-555555555555}"
EndProject
Project("{` + csharp + `}") = "App", "src\App\App.csproj", "{` + appGUID + `}"
EndProject
Project("{` + csharp + `}") = "Lib", "src\Lib\Lib.csproj", "{` + libGUID + `}"
EndProject
Global
EndGlobal
`

const coreProj = `<?xml version="1.0" encoding="utf-8"?>
<Project ToolsVersion="15.0" DefaultTargets="Build" xmlns="http://schemas.microsoft.com/developer/msbuild/2003">
  <PropertyGroup>
    <Configuration Condition=" '$(Configuration)' == '' ">Debug</Configuration>
    <ProjectGuid>{` + coreGUID + `}</ProjectGuid>
    <OutputType>Library</OutputType>
  </PropertyGroup>
  <PropertyGroup Condition=" '$(Configuration)|$(Platform)' == 'Debug|AnyCPU' ">
    <OutputPath>bin\Debug\</OutputPath>
  </PropertyGroup>
  <PropertyGroup Condition=" '$(Configuration)|$(Platform)' == 'Release|AnyCPU' ">
    <OutputPath>..\..\build\Core\</OutputPath>
  </PropertyGroup>
</Project>
`

const appProj = `<?xml version="1.0" encoding="utf-8"?>
<Project ToolsVersion="15.0" xmlns="http://schemas.microsoft.com/developer/msbuild/2003">
  <PropertyGroup>
    <ProjectGuid>{` + appGUID + `}</ProjectGuid>
    <OutputPath>out\$(Configuration)\</OutputPath>
  </PropertyGroup>
  <ItemGroup>
    <ProjectReference Include="..\Core\Core.csproj">
      <Project>{` + coreGUID + `}</Project>
      <Name>Core</Name>
    </ProjectReference>
    <ProjectReference Include="..\Lib\Lib.csproj" />
  </ItemGroup>
  <ItemGroup>
    <ProjectReference Include="..\Ghost\Ghost.csproj" />
  </ItemGroup>
</Project>
`

// libProj is SDK-style: no ProjectGuid and no OutputPath.
const libProj = `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <TargetFramework>netstandard2.0</TargetFramework>
  </PropertyGroup>
</Project>
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// writeFixture lays out a solution with a folder entry, a missing project
// and three real projects. It returns the solution file path.
func writeFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Big.sln"), bigSln)
	writeFile(t, filepath.Join(root, "src", "Core", "Core.csproj"), coreProj)
	writeFile(t, filepath.Join(root, "src", "App", "App.csproj"), appProj)
	writeFile(t, filepath.Join(root, "src", "Lib", "Lib.csproj"), libProj)
	return filepath.Join(root, "Big.sln")
}
