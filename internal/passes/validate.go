package passes

import (
	"errors"
	"fmt"

	"filament/internal/core"
)

// ValidateNoSigBundles checks the post-condition of BundleElim: no
// component signature declares a bundle and no invocation argument still
// needs splatting.
func ValidateNoSigBundles(ns *core.Namespace) error {
	var errs []error
	for i := range ns.Components {
		comp := &ns.Components[i]
		for _, ports := range [][]core.PortDef{comp.Sig.Inputs, comp.Sig.Outputs} {
			for _, p := range ports {
				if p.IsBundle() {
					errs = append(errs, fmt.Errorf("component `%s' still declares bundle `%s' in its signature",
						comp.Sig.Name, p.Bundle.Name))
				}
			}
		}
		core.Walk(comp.Body, func(c core.Command) {
			if c.Kind != core.CmdInvoke {
				return
			}
			for _, p := range c.Invoke.Ports {
				if p.IsRangeAccess() {
					errs = append(errs, fmt.Errorf("component `%s': invocation `%s' still takes range `%s'",
						comp.Sig.Name, c.Invoke.Name, p))
				}
			}
		})
	}
	return errors.Join(errs...)
}
