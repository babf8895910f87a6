// File: internal/browser/scripts.go
package browser

// The scripts below are evaluated in the page. Controls are addressed by
// their position in the scope's full "input, textarea, select" NodeList (and
// buttons in the "button" NodeList), so a survey index stays valid for
// follow-up mutations as long as the DOM itself does not change. Every script
// takes the dialog flag first so survey and mutation always resolve the same
// scope.

// scriptPrelude resolves the working scope and shared visibility helper.
// %[1]t: dialog flag.
const scriptPrelude = `
  const __afDialog = (() => {
    const dlgs = Array.from(document.querySelectorAll("div[role='dialog'], div[role='alertdialog']"));
    return dlgs.find((e) => e.offsetWidth > 0 || e.offsetHeight > 0) || null;
  })();
  const scope = (%[1]t && __afDialog) ? __afDialog : document.body;
  const visible = (el) => {
    const r = el.getBoundingClientRect();
    if (r.width <= 0 || r.height <= 0) return false;
    const st = window.getComputedStyle(el);
    return st.visibility !== 'hidden' && st.display !== 'none';
  };
`

// dialogPresentScript reports whether a visible modal dialog exists.
const dialogPresentScript = `(() => {
  const dlgs = Array.from(document.querySelectorAll("div[role='dialog'], div[role='alertdialog']"));
  return dlgs.some((e) => e.offsetWidth > 0 || e.offsetHeight > 0);
})()`

// scopeTextScript returns the visible text of the scope. %[1]t: dialog flag.
const scopeTextScript = `(() => {` + scriptPrelude + `
  return (scope.innerText || '');
})()`

// surveyControlsScript extracts per-control metadata in document order.
// Invisible elements are included with visible:false so indices stay stable.
// %[1]t: dialog flag.
const surveyControlsScript = `(() => {` + scriptPrelude + `
  const out = [];
  const els = scope.querySelectorAll('input, textarea, select');
  for (let i = 0; i < els.length; i++) {
    const el = els[i];
    const tag = (el.tagName || '').toLowerCase();
    const type = (el.getAttribute('type') || '').toLowerCase();
    const checked = !!el.checked || ((el.getAttribute('aria-checked') || '').toLowerCase() === 'true');
    let value = (tag === 'select')
      ? ((el.selectedOptions && el.selectedOptions[0]) ? ((el.selectedOptions[0].innerText || '').trim()) : '')
      : ((el.value || '').trim());
    if (tag === 'input' && (type === 'radio' || type === 'checkbox')) {
      value = checked ? (value || 'true') : '';
    }

    let labelText = '';
    try {
      if (el.labels && el.labels.length) {
        labelText = (el.labels[0].innerText || '').trim();
      } else if (el.id) {
        const lab = document.querySelector("label[for='" + el.id + "']");
        if (lab) labelText = (lab.innerText || '').trim();
      }
    } catch (e) {}

    let labelledBy = '';
    try {
      const ids = (el.getAttribute('aria-labelledby') || '').trim().split(/\s+/).filter(Boolean);
      labelledBy = ids.map((id) => {
        const n = document.getElementById(id);
        return n ? ((n.innerText || '').trim()) : '';
      }).filter(Boolean).join(' ');
    } catch (e) {}

    let groupText = '';
    try {
      if (tag === 'input' && (type === 'radio' || type === 'checkbox')) {
        const fs = el.closest('fieldset');
        if (fs) {
          const lg = fs.querySelector('legend');
          if (lg) groupText = (lg.innerText || '').trim();
          if (!groupText) {
            const prompt = fs.querySelector('h3,h4,p,strong,label,span');
            if (prompt) groupText = (prompt.innerText || '').trim();
          }
        }
      }
    } catch (e) {}

    let optionLabel = '';
    try {
      if (tag === 'input' && (type === 'radio' || type === 'checkbox')) {
        if (el.labels && el.labels.length) {
          optionLabel = (el.labels[0].innerText || '').trim();
        }
        if (!optionLabel && el.id) {
          const lab = document.querySelector("label[for='" + el.id + "']");
          if (lab) optionLabel = (lab.innerText || '').trim();
        }
      }
    } catch (e) {}

    let boxText = '';
    try {
      const box = el.closest('div') || el.closest('section') || el.parentElement;
      if (box) boxText = (box.innerText || '').slice(0, 300);
    } catch (e) {}

    let options = [];
    if (tag === 'select') {
      try {
        options = Array.from(el.options || []).map((o) => (o.innerText || '').trim()).filter(Boolean);
      } catch (e) {}
    }

    out.push({
      index: i,
      tag: tag,
      type: type,
      name: (el.getAttribute('name') || '').trim(),
      rawValue: (el.getAttribute('value') || '').trim(),
      value: value,
      required: !!el.required || ((el.getAttribute('aria-required') || '').toLowerCase() === 'true'),
      ariaInvalid: ((el.getAttribute('aria-invalid') || '').toLowerCase() === 'true'),
      checked: checked,
      ariaLabel: (el.getAttribute('aria-label') || '').trim(),
      placeholder: (el.getAttribute('placeholder') || '').trim(),
      labelText: labelText,
      labelledBy: labelledBy,
      groupText: groupText,
      boxText: boxText,
      optionLabel: optionLabel,
      options: options,
      accept: (el.getAttribute('accept') || ''),
      visible: visible(el),
    });
  }
  return out;
})()`

// surveyButtonsScript extracts visible buttons with geometry. %[1]t: dialog.
const surveyButtonsScript = `(() => {` + scriptPrelude + `
  const out = [];
  const els = scope.querySelectorAll('button');
  for (let i = 0; i < els.length; i++) {
    const el = els[i];
    if (!visible(el)) continue;
    const r = el.getBoundingClientRect();
    out.push({
      index: i,
      text: (el.innerText || el.textContent || '').replace(/\s+/g, ' ').trim(),
      aria: (el.getAttribute('aria-label') || '').trim(),
      testid: (el.getAttribute('data-testid') || '').trim(),
      class: (el.className || '').toString(),
      disabled: !!el.disabled || (el.getAttribute('aria-disabled') || '').toLowerCase() === 'true',
      x: r.x || 0, y: r.y || 0, w: r.width || 0, h: r.height || 0,
    });
  }
  return out;
})()`

// setValueScript writes a text value through the framework-aware native
// setter and fires input/change. %[1]t: dialog, %[2]d: index, %[3]s: quoted
// value.
const setValueScript = `(() => {` + scriptPrelude + `
  const el = scope.querySelectorAll('input, textarea, select')[%[2]d];
  if (!el) return false;
  const proto = (el.tagName === 'TEXTAREA') ? window.HTMLTextAreaElement.prototype : window.HTMLInputElement.prototype;
  const desc = Object.getOwnPropertyDescriptor(proto, 'value');
  if (desc && desc.set) { desc.set.call(el, %[3]s); } else { el.value = %[3]s; }
  el.dispatchEvent(new Event('input', { bubbles: true }));
  el.dispatchEvent(new Event('change', { bubbles: true }));
  return true;
})()`

// selectOptionScript selects the option whose visible text matches exactly.
// %[1]t: dialog, %[2]d: index, %[3]s: quoted option text.
const selectOptionScript = `(() => {` + scriptPrelude + `
  const el = scope.querySelectorAll('input, textarea, select')[%[2]d];
  if (!el || el.tagName !== 'SELECT') return false;
  const want = %[3]s;
  const hit = Array.from(el.options || []).find((o) => (o.innerText || '').trim() === want);
  if (!hit) return false;
  el.value = hit.value;
  el.dispatchEvent(new Event('change', { bubbles: true }));
  return true;
})()`

// setCheckedScript drives a radio/checkbox to the desired state, clicking
// first so framework handlers fire. %[1]t: dialog, %[2]d: index, %[3]t: want.
const setCheckedScript = `(() => {` + scriptPrelude + `
  const el = scope.querySelectorAll('input, textarea, select')[%[2]d];
  if (!el) return false;
  const want = %[3]t;
  if (el.checked !== want) { el.click(); }
  if (el.checked !== want) {
    el.checked = want;
    el.dispatchEvent(new Event('change', { bubbles: true }));
  }
  return el.checked === want;
})()`

// markUploadScript tags a file input for the CDP file-attach call.
// %[1]t: dialog, %[2]d: index.
const markUploadScript = `(() => {` + scriptPrelude + `
  document.querySelectorAll('[data-af-upload]').forEach((n) => n.removeAttribute('data-af-upload'));
  const el = scope.querySelectorAll('input, textarea, select')[%[2]d];
  if (!el || el.tagName !== 'INPUT') return false;
  el.setAttribute('data-af-upload', '1');
  return true;
})()`

// clickButtonScript activates a button by survey index. %[1]t: dialog,
// %[2]d: index.
const clickButtonScript = `(() => {` + scriptPrelude + `
  const el = scope.querySelectorAll('button')[%[2]d];
  if (!el) return false;
  el.scrollIntoView({ block: 'center' });
  el.click();
  return true;
})()`

// findApplyEntryScript reports the apply entry state on a job page: a direct
// apply link/button, or failing that any external apply URL worth recording.
const findApplyEntryScript = `(() => {
  const visible = (el) => el.offsetWidth > 0 || el.offsetHeight > 0;
  const links = Array.from(document.querySelectorAll("a[href*='openSDUIApplyFlow=true']"));
  if (links.length) return { found: true, external: '' };
  const label = (b) => ((b.innerText || '') + ' ' + (b.getAttribute('aria-label') || ''));
  const btn = Array.from(document.querySelectorAll('button')).find((b) => visible(b) && /easy apply/i.test(label(b)));
  if (btn) return { found: true, external: '' };
  const ext = Array.from(document.querySelectorAll("a[href^='http']"))
    .find((a) => visible(a) && /\bapply\b/i.test(a.innerText || '') && !(a.href || '').includes('linkedin.com'));
  return { found: false, external: ext ? (ext.href || '') : '' };
})()`

// clickApplyEntryScript activates the apply entry: click a visible link or
// button, else surface the hidden link's href for direct navigation.
// Returns "clicked", a URL, or "".
const clickApplyEntryScript = `(() => {
  const visible = (el) => el.offsetWidth > 0 || el.offsetHeight > 0;
  const links = Array.from(document.querySelectorAll("a[href*='openSDUIApplyFlow=true']"));
  const link = links.find(visible);
  if (link) { link.click(); return 'clicked'; }
  const label = (b) => ((b.innerText || '') + ' ' + (b.getAttribute('aria-label') || ''));
  const btn = Array.from(document.querySelectorAll('button')).find((b) => visible(b) && /easy apply/i.test(label(b)));
  if (btn) { btn.click(); return 'clicked'; }
  if (links.length && links[0].href) { return links[0].href.replace(/&amp;/g, '&'); }
  return '';
})()`
