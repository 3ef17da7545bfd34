package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

var reportTemplate = template.Must(template.New("report").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #333;">Relatório de Solicitações de Táxi</h2>
  <p>Olá!</p>
  <p>Segue em anexo o relatório com as solicitações de táxi conforme solicitado.</p>
  <div style="background-color: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
    <p><strong>Data de geração:</strong> {{.}}</p>
    <p><strong>Formato:</strong> Excel (.xlsx) - Formatado por carro e passageiros</p>
  </div>
  <p>O arquivo em anexo contém todas as informações organizadas por carro:</p>
  <ul>
    <li><strong>Organização por carro:</strong> Cada carro aparece destacado</li>
    <li><strong>Dados dos passageiros:</strong> Nome, endereço, telefone, etc.</li>
    <li><strong>Informações da viagem:</strong> Data, horário, origem e destino</li>
  </ul>
  <hr style="margin: 30px 0; border: none; border-top: 1px solid #eee;">
  <p style="color: #666; font-size: 12px;">
    Este é um email automático do Sistema de Solicitação de Táxi.<br>
    Por favor, não responda a este email.
  </p>
</div>`))

var testTemplate = template.Must(template.New("test").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #28a745;">Teste de Email Bem-sucedido!</h2>
  <p>Este é um email de teste do Sistema de Solicitação de Táxi.</p>
  <p>Se você recebeu este email, significa que a configuração está funcionando corretamente.</p>
  <p><strong>Data do teste:</strong> {{.}}</p>
</div>`))

func renderBody(t *template.Template, now time.Time) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, now.Format("02/01/2006, 15:04:05")); err != nil {
		return "", fmt.Errorf("render %s email: %w", t.Name(), err)
	}
	return buf.String(), nil
}
