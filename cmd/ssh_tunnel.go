package cmd

import (
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/rolodex-app/directory-services/internal/appconfig"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// SSHClient creates a new SSH client
func SSHClient(config appconfig.TunnelConfig) (*ssh.Client, error) {
	key, err := os.ReadFile(config.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read private key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("unable to parse private key: %w", err)
	}

	// Define the SSH client configuration
	sshConfig := &ssh.ClientConfig{
		User: config.User,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // Don't verify host key (not recommended for production)
		Timeout:         5 * time.Second,             // Connection timeout
	}

	// Connect to the SSH server
	client, err := ssh.Dial("tcp", net.JoinHostPort(config.Host, config.Port), sshConfig)
	if err != nil {
		return nil, err
	}

	return client, nil
}

// ForwardTraffic forwards traffic from local to remote host until the
// listener is closed.
func ForwardTraffic(localListener net.Listener, client *ssh.Client, config appconfig.TunnelConfig, logger *zerolog.Logger) {
	remote := net.JoinHostPort(config.RemoteHost, config.RemotePort)
	for {
		localConn, err := localListener.Accept() // Accept local connection
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			logger.Debug().Err(err).Msg("SSH tunnel listener closed")
			return
		}

		// Open a connection to the remote host
		remoteConn, err := client.Dial("tcp", remote)
		if err != nil {
			logger.Error().Err(err).Str("remote", remote).Msg("Failed to connect to remote host")
			localConn.Close()
			continue
		}

		// Forward data between local and remote connections
		go func() {
			defer localConn.Close()
			defer remoteConn.Close()

			// Forward local to remote
			go io.Copy(remoteConn, localConn)
			// Forward remote to local
			io.Copy(localConn, remoteConn)
		}()
	}
}

type sshTunnel struct {
	client   *ssh.Client
	listener net.Listener
}

func (t *sshTunnel) Close() error {
	t.listener.Close()
	return t.client.Close()
}

// StartSSHTunnel opens the tunnel and forwards traffic in the background.
// Closing the result tears it down.
func StartSSHTunnel(config appconfig.TunnelConfig, logger *zerolog.Logger) (io.Closer, error) {
	// Create an SSH client
	client, err := SSHClient(config)
	if err != nil {
		return nil, err
	}

	// Listen on the local port
	localListener, err := net.Listen("tcp", "localhost:"+config.LocalPort)
	if err != nil {
		client.Close()
		return nil, err
	}

	logger.Info().Str("local_port", config.LocalPort).Str("remote_host", config.RemoteHost).
		Str("remote_port", config.RemotePort).Msg("SSH tunnel started")

	// Forward the traffic between local and remote
	go ForwardTraffic(localListener, client, config, logger)

	return &sshTunnel{client: client, listener: localListener}, nil
}
