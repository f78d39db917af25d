package banner

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"copacabana/pkg/config"
	"copacabana/pkg/store"
)

const banner = `
 ██████╗ ██████╗ ██████╗  █████╗  ██████╗ █████╗ ██████╗  █████╗ ███╗   ██╗ █████╗
██╔════╝██╔═══██╗██╔══██╗██╔══██╗██╔════╝██╔══██╗██╔══██╗██╔══██╗████╗  ██║██╔══██╗
██║     ██║   ██║██████╔╝███████║██║     ███████║██████╔╝███████║██╔██╗ ██║███████║
██║     ██║   ██║██╔═══╝ ██╔══██║██║     ██╔══██║██╔══██╗██╔══██║██║╚██╗██║██╔══██║
╚██████╗╚██████╔╝██║     ██║  ██║╚██████╗██║  ██║██████╔╝██║  ██║██║ ╚████║██║  ██║
 ╚═════╝ ╚═════╝ ╚═╝     ╚═╝  ╚═╝ ╚═════╝╚═╝  ╚═╝╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═══╝╚═╝  ╚═╝
`

// Print writes the startup banner using the effective config.
func Print(eff config.EffectiveConfigResult, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", eff.Addr)
	fmt.Printf("DB Path:  %s\n", eff.DBPath)
	if store.Ready() {
		st := store.GetStats()
		fmt.Printf("DB Size:  %s (%d resources)\n", humanize.Bytes(st.DiskBytes), st.Members)
	}
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	if eff.Source != "" {
		fmt.Printf("Config source: %s\n", eff.Source)
	}
	rt := "disabled"
	if eff.Config.Realtime.Enabled {
		rt = "enabled at " + eff.Config.WSPath()
	}
	fmt.Printf("Realtime: %s\n", rt)
	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("GET    /                              - greeting")
	fmt.Println("GET    /:namespace/:collection        - list resources")
	fmt.Println("POST   /:namespace/:collection        - create resource")
	fmt.Println("GET    /:namespace/:collection/:id    - get resource")
	fmt.Println("PUT    /:namespace/:collection/:id    - update resource")
	fmt.Println("DELETE /:namespace/:collection/:id    - delete resource")
	fmt.Println("\n== Examples ===================================================")
	fmt.Printf("curl -X POST 'http://localhost%s/app/todo?token=t1' -d '{\"title\":\"hello\"}'\n", eff.Addr)
	fmt.Printf("curl 'http://localhost%s/app/todo'\n", eff.Addr)
}
