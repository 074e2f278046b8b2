// Package ssl manages Let's Encrypt certificates on remote servers by running
// certbot over ssh.
//
// A Manager resolves each domain's server through its project, runs one
// certbot command through the remote gateway and, only when that command
// succeeds, writes the new certificate state to the store and then to the
// caller's Domain. A failed command leaves both untouched.
//
// # Lifecycle
//
//	no certificate --Obtain--> issued
//	issued --Renew--> issued (expiry moved to now + 90 days)
//	issued --Revoke--> no certificate
//
// # Basic Usage
//
//	mgr := ssl.New(ssl.Config{Email: "ops@example.com"}, gateway, store)
//
//	cert, err := mgr.Obtain(ctx, domain)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cert.CertPath) // /etc/letsencrypt/live/example.com/fullchain.pem
//
// # Sweeps
//
// Sweep renews every domain with auto-renew on whose certificate expires in
// the renew window (30 days by default). Domains are renewed independently,
// so one failure never stops the others:
//
//	report, err := mgr.Sweep(ctx)
//	for _, f := range report.Failed {
//	    fmt.Println(f.Domain, f.Err)
//	}
//
// RenewWorker repeats the sweep on an interval.
//
// # Server Preparation
//
// EnsureClient installs certbot with apt-get, dnf or yum when it is missing,
// and SetupAutoRenewal adds a daily "certbot renew" cron entry unless the
// certbot systemd timer or an existing entry already covers it.
//
// Domains and emails are always shell-quoted. Only single-domain
// certificates are issued.
package ssl
