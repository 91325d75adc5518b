// Package sdk is a Go client for the okp HTTP bridge started by "okp serve".
//
// Use it from services that cannot reach the knowledge portal directly:
//
//	c, err := sdk.New("http://okp-bridge:8090", sdk.WithAPIKey(os.Getenv("OKP_BRIDGE_KEY")))
//	if err != nil {
//		return err
//	}
//	res, err := c.Retrieve(ctx, "configure selinux", sdk.RetrieveParams{Rows: 5, Product: "Red Hat Enterprise Linux"})
//	if errors.Is(err, sdk.ErrCircuitOpen) {
//		// the bridge is shedding load; back off
//	}
//	fmt.Println(res.Context)
//
// Bridge errors decode into *APIError, which matches the sentinel errors
// below through errors.Is.
package sdk
