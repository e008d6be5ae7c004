package mcpserver

// DiagnosticFormatContract describes the diagnostic structure that
// LLM consumers receive from the validation tools.
const DiagnosticFormatContract = `# Naudiz Diagnostic Format

Every validation result returned by the Naudiz tools follows this structure.

## Manifest result

` + "```" + `json
{
  "path": "packages/web/package.json",
  "name": "web",
  "package_root": "packages/web",
  "checksum": "<sha256 of the manifest bytes>",
  "valid": false,
  "diagnostics": [ ... ],
  "updated_at": "2025-01-20T12:00:00Z"
}
` + "```" + `

A manifest is ` + "`" + `valid` + "`" + ` when its diagnostics list is empty.

## Diagnostic

` + "```" + `json
{
  "name": "left-pad",
  "declared": "^1.0.0",
  "installed": "2.0.0",
  "kind": "version-mismatch",
  "severity": "error",
  "message": "Installed version (2.0.0) does not match declared version (^1.0.0)",
  "span": { "start": 123, "end": 129 }
}
` + "```" + `

## Rules

1. **Kinds.** ` + "`" + `not-installed` + "`" + ` — the dependency has no readable
   package.json under node_modules. ` + "`" + `version-mismatch` + "`" + ` — the installed
   version does not satisfy the declared semver range.
2. **Severities.** ` + "`" + `version-mismatch` + "`" + ` is an ` + "`" + `error` + "`" + `;
   ` + "`" + `not-installed` + "`" + ` is a ` + "`" + `warning` + "`" + `.
3. **Spans** are byte offsets into the raw manifest file, covering the
   declared range string (quotes excluded). ` + "`" + `installed` + "`" + ` is empty for
   ` + "`" + `not-installed` + "`" + ` diagnostics.
4. **Prereleases.** An installed prerelease (e.g. ` + "`" + `1.1.0-beta.1` + "`" + `)
   satisfies a range when its release version would.
5. **Sections.** dependencies and devDependencies are both validated; when a
   package appears in both, the devDependencies entry wins.
6. **Remediation.** Use the ` + "`" + `install_command` + "`" + ` tool to obtain the
   npm/pnpm/yarn command for a manifest; Naudiz never executes installs on
   behalf of MCP clients.
`
